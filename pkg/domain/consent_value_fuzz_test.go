package domain

import "testing"

// FuzzParseConsentValue checks that parsing never panics and that accepted
// values are exactly the valid ones.
func FuzzParseConsentValue(f *testing.F) {
	f.Add("")
	f.Add("y")
	f.Add("n")
	f.Add("p")
	f.Add("yes")
	f.Add(string([]byte{0x00, 0x79}))

	f.Fuzz(func(t *testing.T, input string) {
		v, err := ParseConsentValue(input)
		if err != nil {
			if ConsentValue(input).IsValid() {
				t.Errorf("valid value %q was rejected: %v", input, err)
			}
			return
		}
		if !v.IsValid() {
			t.Errorf("accepted invalid value %q", input)
		}
		if v.String() != input {
			t.Errorf("parse changed value: %q -> %q", input, v)
		}
	})
}
