package main

import "testing"

func TestShortVersion(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"PostgreSQL 16.3 (Debian 16.3-1.pgdg120+1) on x86_64-pc-linux-gnu", "PostgreSQL 16.3"},
		{"PostgreSQL 15.2 on x86_64-apple-darwin21.6.0", "PostgreSQL 15.2"},
		{"PostgreSQL 14.1", "PostgreSQL 14.1"},
	}
	for _, c := range cases {
		if got := shortVersion(c.in); got != c.want {
			t.Fatalf("shortVersion(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, c := range cases {
		if got := formatBytes(c.in); got != c.want {
			t.Fatalf("formatBytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
