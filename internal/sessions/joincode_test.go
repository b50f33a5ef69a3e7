package sessions

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeChecker struct {
	taken map[string]bool
	all   bool
	calls int
}

func (f *fakeChecker) LiveJoinCodeExists(_ context.Context, code string) (bool, error) {
	f.calls++
	if f.all {
		return true, nil
	}
	return f.taken[code], nil
}

func TestGenerateJoinCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateJoinCode()
		if err != nil {
			t.Fatalf("GenerateJoinCode: %v", err)
		}
		if len(code) != joinCodeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), joinCodeLength)
		}
		for _, r := range code {
			if !strings.ContainsRune(joinCodeAlphabet, r) {
				t.Fatalf("code %q contains %q, not in alphabet", code, r)
			}
		}
		for _, forbidden := range "01OIL" {
			if strings.ContainsRune(code, forbidden) {
				t.Fatalf("code %q contains ambiguous character %q", code, forbidden)
			}
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Fatalf("only %d distinct codes out of 100, generator looks broken", len(seen))
	}
}

func TestAppendCodeSymbolsRejectsHighBytes(t *testing.T) {
	high := make([]byte, 0, 256-unbiasedLimit)
	for b := unbiasedLimit; b < 256; b++ {
		high = append(high, byte(b))
	}
	if got := appendCodeSymbols(nil, high); len(got) != 0 {
		t.Fatalf("high bytes produced %q, want nothing", got)
	}

	// Below the limit every residue class maps through cleanly, so the
	// first and last accepted bytes of a class pick the same symbol.
	got := appendCodeSymbols(nil, []byte{0, 31, byte(unbiasedLimit - 1)})
	want := "AA9"
	if string(got) != want {
		t.Fatalf("appendCodeSymbols = %q, want %q", got, want)
	}
}

func TestAppendCodeSymbolsStopsAtLength(t *testing.T) {
	got := appendCodeSymbols(nil, make([]byte, joinCodeLength+4))
	if len(got) != joinCodeLength {
		t.Fatalf("code has length %d, want %d", len(got), joinCodeLength)
	}
}

func TestAllocateJoinCodeFree(t *testing.T) {
	checker := &fakeChecker{}
	code, err := AllocateJoinCode(context.Background(), checker)
	if err != nil {
		t.Fatalf("AllocateJoinCode: %v", err)
	}
	if len(code) != joinCodeLength {
		t.Fatalf("code %q has wrong length", code)
	}
	if checker.calls != 1 {
		t.Fatalf("checker called %d times, want 1", checker.calls)
	}
}

func TestAllocateJoinCodeExhausted(t *testing.T) {
	checker := &fakeChecker{all: true}
	_, err := AllocateJoinCode(context.Background(), checker)
	if !errors.Is(err, ErrJoinCodeExhausted) {
		t.Fatalf("err = %v, want ErrJoinCodeExhausted", err)
	}
	if checker.calls != maxCodeAttempts {
		t.Fatalf("checker called %d times, want %d", checker.calls, maxCodeAttempts)
	}
}
