package shellparse

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseTokenizes(t *testing.T) {
	cmd, err := Parse("ls -la /tmp")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !reflect.DeepEqual(cmd.Tokens, []string{"ls", "-la", "/tmp"}) {
		t.Fatalf("unexpected tokens: %v", cmd.Tokens)
	}
	if cmd.Base() != "ls" {
		t.Fatalf("expected base ls, got %s", cmd.Base())
	}
	if !reflect.DeepEqual(cmd.Args(), []string{"-la", "/tmp"}) {
		t.Fatalf("unexpected args: %v", cmd.Args())
	}
}

func TestParseHonorsQuoting(t *testing.T) {
	cmd, err := Parse(`echo "hello world"`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cmd.Tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", cmd.Tokens)
	}
	if cmd.Tokens[1] != "hello world" {
		t.Fatalf("quoted token not preserved: %q", cmd.Tokens[1])
	}
}

func TestParseEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		if _, err := Parse(raw); !errors.Is(err, ErrEmpty) {
			t.Fatalf("Parse(%q): expected ErrEmpty, got %v", raw, err)
		}
	}
}

func TestParseMalformedQuoting(t *testing.T) {
	_, err := Parse(`echo "unterminated`)
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	if errors.Is(err, ErrEmpty) {
		t.Fatal("syntax error must be distinct from ErrEmpty")
	}
}

func TestDangerous(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"ls -la", nil},
		{"cat a.txt > b.txt", []string{">"}},
		{"echo hi; rm x", []string{";"}},
		{`echo "$(whoami)"`, []string{"$", "(", ")"}},
		{"a & b | c", []string{"&", "|"}},
	}
	for _, tc := range tests {
		got := Dangerous(tc.raw)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Dangerous(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestDangerousInsideQuotes(t *testing.T) {
	// Detection runs on the raw string; quoting does not hide metacharacters.
	got := Dangerous(`echo ">"`)
	if !reflect.DeepEqual(got, []string{">"}) {
		t.Fatalf("expected quoted > detected, got %v", got)
	}
}

func TestElevatedAndDropSudo(t *testing.T) {
	cmd, err := Parse("sudo ls /root")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !cmd.Elevated() {
		t.Fatal("expected elevated command")
	}

	dropped, err := cmd.DropSudo()
	if err != nil {
		t.Fatalf("DropSudo failed: %v", err)
	}
	if dropped.Base() != "ls" {
		t.Fatalf("expected re-based to ls, got %s", dropped.Base())
	}
}

func TestDropSudoBareSudo(t *testing.T) {
	cmd, err := Parse("sudo")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := cmd.DropSudo(); err == nil {
		t.Fatal("expected error for bare sudo")
	}
}

func TestDropSudoPlainCommand(t *testing.T) {
	cmd, err := Parse("ls")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	same, err := cmd.DropSudo()
	if err != nil {
		t.Fatalf("DropSudo failed: %v", err)
	}
	if same.Base() != "ls" {
		t.Fatalf("unexpected base: %s", same.Base())
	}
}
