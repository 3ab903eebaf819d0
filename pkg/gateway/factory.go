package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/canteenx/canteenx-backend/pkg/config"
	"github.com/canteenx/canteenx-backend/pkg/logger"
)

// New builds the gateway client named by the config.
func New(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "razorpay":
		return NewRazorpayClient(ctx, cfg, logg)
	case "fake":
		return NewFakeClient(), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway provider %q", cfg.Provider)
	}
}
