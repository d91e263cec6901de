package videogen

import "fmt"

// Contract is the active provider's parameter constraints. Validation, the
// wire mapping and the docs all read from the same table; the ranges differ
// between provider versions, so nothing outside this file hardcodes them.
type Contract struct {
	MaxPromptLength int
	MinDuration     int
	MaxDuration     int
	Resolutions     []string
	AspectRatios    []string
}

// DefaultContract matches the currently configured provider version: short
// clips up to 20 seconds, capped at 1080p, discrete output sizes.
func DefaultContract() Contract {
	return Contract{
		MaxPromptLength: 1000,
		MinDuration:     1,
		MaxDuration:     20,
		Resolutions:     []string{"480p", "720p", "1080p"},
		AspectRatios:    []string{"16:9", "9:16", "1:1"},
	}
}

// SupportsResolution reports whether the contract allows the given value.
func (c Contract) SupportsResolution(resolution string) bool {
	for _, r := range c.Resolutions {
		if r == resolution {
			return true
		}
	}
	return false
}

// SupportsAspectRatio reports whether the contract allows the given value.
func (c Contract) SupportsAspectRatio(ratio string) bool {
	for _, a := range c.AspectRatios {
		if a == ratio {
			return true
		}
	}
	return false
}

// The provider only accepts discrete size strings, not arbitrary dimensions.
var sizeTable = map[string]string{
	"480p/16:9":  "854x480",
	"480p/9:16":  "480x854",
	"480p/1:1":   "480x480",
	"720p/16:9":  "1280x720",
	"720p/9:16":  "720x1280",
	"720p/1:1":   "720x720",
	"1080p/16:9": "1920x1080",
	"1080p/9:16": "1080x1920",
	"1080p/1:1":  "1080x1080",
}

const (
	defaultResolution  = "720p"
	defaultAspectRatio = "16:9"
)

// SizeFor translates an internal resolution/aspect pair into the provider's
// discrete size string. Empty values fall back to the service defaults.
func SizeFor(resolution, aspectRatio string) (string, error) {
	if resolution == "" {
		resolution = defaultResolution
	}
	if aspectRatio == "" {
		aspectRatio = defaultAspectRatio
	}
	size, ok := sizeTable[resolution+"/"+aspectRatio]
	if !ok {
		return "", fmt.Errorf("videogen: no size for resolution %s aspect %s", resolution, aspectRatio)
	}
	return size, nil
}
