package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	MinPollInterval   = 50 * time.Millisecond
	MinReceiptTimeout = time.Second
)

// Validate checks the configuration for values the CLI cannot run with.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(strings.TrimSpace(c.RPCURL))
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("RPCURL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss" && u.Scheme != "":
		errs = append(errs, fmt.Errorf("RPCURL: unsupported scheme %q", u.Scheme))
	}
	if c.Account != "" && !common.IsHexAddress(c.Account) {
		errs = append(errs, fmt.Errorf("Account: %q is not an address", c.Account))
	}
	for account := range c.AccountFeeTokens {
		if !common.IsHexAddress(account) {
			errs = append(errs, fmt.Errorf("AccountFeeTokens: %q is not an address", account))
		}
	}
	if c.NodeSigning && c.Account == "" {
		errs = append(errs, errors.New("Account: required with NodeSigning"))
	}
	if !c.NodeSigning && c.KeystorePath == "" && c.Account != "" {
		errs = append(errs, errors.New("KeystorePath: required unless NodeSigning is set"))
	}
	if c.ReceiptTimeout.Std() < MinReceiptTimeout {
		errs = append(errs, fmt.Errorf("ReceiptTimeout: below %s", MinReceiptTimeout))
	}
	if c.PollInterval.Std() < MinPollInterval {
		errs = append(errs, fmt.Errorf("PollInterval: below %s", MinPollInterval))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("RequestsPerSecond: negative"))
	}
	if c.Telemetry.Enabled() && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		errs = append(errs, errors.New("telemetry.Endpoint: required when exporting"))
	}
	return errors.Join(errs...)
}
