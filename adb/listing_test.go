package adb

import (
	"reflect"
	"testing"
)

func TestUnescapeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`My\ Folder/`, "My Folder/"},
		{`readme\ file.txt`, "readme file.txt"},
		{"Download/", "Download/"},
		{"plain.txt", "plain.txt"},
		{`a\ b\ c/`, "a b c/"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := UnescapeName(tc.in); got != tc.want {
			t.Errorf("UnescapeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseListing(t *testing.T) {
	raw := "Download/\nMy\\ Folder/\nreadme\\ file.txt\n\nnotes.txt\r\n"
	got := ParseListing(raw)
	want := []ListingEntry{
		{Name: "Download", Dir: true},
		{Name: "My Folder", Dir: true},
		{Name: "readme file.txt", Dir: false},
		{Name: "notes.txt", Dir: false},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseListing = %#v, want %#v", got, want)
	}
}

func TestParseListingSkipsUnclassifiableLines(t *testing.T) {
	got := ParseListing("/\n   \nok.txt\n")
	if len(got) != 1 || got[0].Name != "ok.txt" || got[0].Dir {
		t.Fatalf("expected single file entry ok.txt, got %#v", got)
	}
}

func TestRemotePathHelpers(t *testing.T) {
	if got := JoinRemote("/sdcard", "My Folder"); got != "/sdcard/My Folder" {
		t.Errorf("JoinRemote = %q", got)
	}
	if got := ParentRemote("/sdcard/Download"); got != "/sdcard" {
		t.Errorf("ParentRemote = %q", got)
	}
	if got := ParentRemote("/sdcard"); got != "/" {
		t.Errorf("ParentRemote root = %q", got)
	}
}

func TestShellQuote(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/sdcard/Download", "/sdcard/Download"},
		{"/sdcard/My Folder", "'/sdcard/My Folder'"},
		{"", "''"},
		{"it's", `'it'"'"'s'`},
	}
	for _, tc := range cases {
		if got := shellQuote(tc.in); got != tc.want {
			t.Errorf("shellQuote(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
