package orders

import (
	"fmt"
	"time"

	"github.com/angelmondragon/conduit-storefront/pkg/security"
)

const orderNumberSuffixLen = 6

// NewOrderNumber formats ORD-<unix millis>-<6 uppercase alphanumerics>.
func NewOrderNumber(now time.Time) (string, error) {
	suffix, err := security.RandomUpperAlnum(orderNumberSuffixLen)
	if err != nil {
		return "", fmt.Errorf("order number suffix: %w", err)
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix), nil
}
