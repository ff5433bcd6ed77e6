package quotes

import (
	"fmt"
	"time"

	"github.com/angelmondragon/conduit-storefront/pkg/security"
)

const requestNumberSuffixLen = 5

// NewRequestNumber formats QR-<unix millis>-<5 uppercase alphanumerics>.
func NewRequestNumber(now time.Time) (string, error) {
	suffix, err := security.RandomUpperAlnum(requestNumberSuffixLen)
	if err != nil {
		return "", fmt.Errorf("request number suffix: %w", err)
	}
	return fmt.Sprintf("QR-%d-%s", now.UnixMilli(), suffix), nil
}
