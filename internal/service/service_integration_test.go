//go:build integration
// +build integration

package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjstillabower/tour-guide-service/internal/service"
	"github.com/kjstillabower/tour-guide-service/internal/session"
	testhelpers "github.com/kjstillabower/tour-guide-service/internal/testhelpers"
)

// TestIntegration_LookupThenChat runs a full city lookup and chat turn against live providers.
func TestIntegration_LookupThenChat(t *testing.T) {
	cfg := testhelpers.GetIntegrationConfig(t)
	svc, cleanup := testhelpers.SetupIntegrationService(t, cfg)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	sid := session.NewID()

	if _, err := svc.Chat(ctx, sid, "hello"); !errors.Is(err, service.ErrNoCity) {
		t.Fatalf("Chat() before lookup error = %v, want ErrNoCity", err)
	}

	res, err := svc.LookupCity(ctx, sid, "Lisbon")
	if err != nil {
		t.Fatalf("LookupCity() error = %v", err)
	}
	if res.Weather.ResolvedCity == "" || res.Weather.Country == "" {
		t.Errorf("weather missing location fields: %+v", res.Weather)
	}
	if len(res.Places) > 5 {
		t.Errorf("places = %d, want at most 5", len(res.Places))
	}
	t.Logf("places for Lisbon: %v", res.Places)

	reply, err := svc.Chat(ctx, sid, "What should I see this afternoon?")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply.City != "Lisbon" || reply.Response == "" {
		t.Errorf("reply = %+v", reply)
	}
}
