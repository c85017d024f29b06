package promptcompose

import "regexp"

// secretPatterns catches common credential shapes that must never appear in
// a rendered prompt. This is a defense-in-depth net on top of callers never
// passing raw secrets into render vars in the first place.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`(?i)AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)ghp_[A-Za-z0-9]{30,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-_.]{20,}`),
}

// ErrSecretLeak is returned by render paths when the rendered output
// contains a string matching a known secret shape.
type ErrSecretLeak struct {
	Pattern string
}

func (e *ErrSecretLeak) Error() string {
	return "promptcompose: rendered output matches sensitive pattern " + e.Pattern
}

// checkNoSecrets scans rendered for any known secret pattern.
func checkNoSecrets(rendered string) error {
	for _, re := range secretPatterns {
		if re.MatchString(rendered) {
			return &ErrSecretLeak{Pattern: re.String()}
		}
	}
	return nil
}
