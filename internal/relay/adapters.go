package relay

import (
	"context"

	"github.com/shopfront-dev/storefront/internal/tracking"
)

// Conversions sends pixel server events through a Dispatcher.
type Conversions struct {
	D *Dispatcher
}

// SendConversion implements tracking.ConversionsSender.
func (c Conversions) SendConversion(ctx context.Context, evt tracking.ServerEvent) error {
	userData := map[string]any{}
	if evt.Browser.FBP != "" {
		userData["fbp"] = evt.Browser.FBP
	}
	if evt.Browser.FBC != "" {
		userData["fbc"] = evt.Browser.FBC
	}
	if evt.UserAgent != "" {
		userData["client_user_agent"] = evt.UserAgent
	}
	params := map[string]any{
		"eventSourceUrl": evt.EventSourceURL,
		"userData":       userData,
	}
	if len(evt.CustomData) > 0 {
		params["customData"] = evt.CustomData
	}
	return c.D.Send(ctx, Message{
		EventName: evt.EventName,
		EventID:   evt.EventID,
		Params:    params,
	})
}

// Analytics sends best-effort analytics events through a Dispatcher.
type Analytics struct {
	D *Dispatcher
}

// SendAnalytics implements tracking.AnalyticsSender.
func (a Analytics) SendAnalytics(ctx context.Context, eventName string, params map[string]any) error {
	return a.D.Send(ctx, Message{EventName: eventName, Params: params})
}
