package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/macchain/backend/pkg/api"
	"github.com/macchain/backend/pkg/output"
)

// settingKinds lists the settings the server accepts and whether each is a
// boolean
var settingKinds = map[string]bool{
	"notifications_enabled": true,
	"reminder_enabled":      true,
	"community_enabled":     true,
	"email_enabled":         true,
	"reminder_time":         false,
	"timezone":              false,
	"theme":                 false,
	"language":              false,
	"font_size":             false,
}

type SettingsService struct {
	s *Session
}

func NewSettingsService(s *Session) *SettingsService {
	return &SettingsService{s: s}
}

// Get prints the user's settings
func (st *SettingsService) Get(ctx context.Context) error {
	if err := st.s.RequireAuth(); err != nil {
		return err
	}
	settings, err := st.s.API.Settings(ctx)
	if err != nil {
		return err
	}
	return output.Print("Settings", settings)
}

// Set changes one setting
func (st *SettingsService) Set(ctx context.Context, key, value string) error {
	if err := st.s.RequireAuth(); err != nil {
		return err
	}
	update, err := settingUpdate(key, value)
	if err != nil {
		return err
	}
	settings, err := st.s.API.UpdateSettings(ctx, update)
	if err != nil {
		return err
	}
	output.PrintSuccess("✓ %s updated", key)
	return output.Print("Settings", settings)
}

// Consent prints the user's terms and privacy consent
func (st *SettingsService) Consent(ctx context.Context) error {
	if err := st.s.RequireAuth(); err != nil {
		return err
	}
	consent, err := st.s.API.Consent(ctx)
	if err != nil {
		return err
	}
	return output.Print("Consent", consent)
}

// Accept records consent. Marketing is only sent when the flag was given.
func (st *SettingsService) Accept(ctx context.Context, terms, privacy bool, marketing *bool) error {
	if err := st.s.RequireAuth(); err != nil {
		return err
	}
	update := api.ConsentUpdate{MarketingAccepted: marketing}
	if terms {
		update.TermsAccepted = &terms
	}
	if privacy {
		update.PrivacyAccepted = &privacy
	}
	if update.TermsAccepted == nil && update.PrivacyAccepted == nil && update.MarketingAccepted == nil {
		return fmt.Errorf("nothing to accept; pass --terms, --privacy or --marketing")
	}
	consent, err := st.s.API.UpdateConsent(ctx, update)
	if err != nil {
		return err
	}
	output.PrintSuccess("✓ Consent saved")
	return output.Print("Consent", consent)
}

func settingUpdate(key, value string) (api.SettingsUpdate, error) {
	key = strings.ToLower(strings.ReplaceAll(key, "-", "_"))
	isBool, ok := settingKinds[key]
	if !ok {
		return nil, fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(settingNames(), ", "))
	}
	if !isBool {
		return api.SettingsUpdate{key: value}, nil
	}
	b, err := parseBool(value)
	if err != nil {
		return nil, fmt.Errorf("%s expects true or false", key)
	}
	return api.SettingsUpdate{key: b}, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(value)
}

func settingNames() []string {
	names := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
