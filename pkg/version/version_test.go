package version

import (
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"3.90", 3, 90},
		{"3.72", 3, 72},
		{"2.0", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major {
				t.Errorf("Major = %d, want %d", v.Major, tt.major)
			}
			if v.Minor != tt.minor {
				t.Errorf("Minor = %d, want %d", v.Minor, tt.minor)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"3",
		"abc",
		"3.90.1",
		"3.x",
		"-1.0",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestStringPadsMinor(t *testing.T) {
	v := ProtocolVersion{Major: 3, Minor: 5}
	if got := v.String(); got != "3.05" {
		t.Errorf("String() = %q, want %q", got, "3.05")
	}
}

func TestCompatible(t *testing.T) {
	a := ProtocolVersion{Major: 3, Minor: 72}
	b := ProtocolVersion{Major: 3, Minor: 90}
	c := ProtocolVersion{Major: 2, Minor: 0}

	if !a.Compatible(b) {
		t.Error("3.72 should be compatible with 3.90")
	}
	if a.Compatible(c) {
		t.Error("3.72 should not be compatible with 2.0")
	}
}

func TestGreetingRoundTrip(t *testing.T) {
	g := Greeting()
	if g != "Hello client 3.9" {
		t.Fatalf("Greeting() = %q", g)
	}

	v, err := FromGreeting(g)
	if err != nil {
		t.Fatalf("FromGreeting: %v", err)
	}
	if v.String() != Current {
		t.Errorf("FromGreeting version = %s, want %s", v, Current)
	}

	if _, err := FromGreeting("ON"); err == nil {
		t.Error("FromGreeting(\"ON\") should fail")
	}
}
