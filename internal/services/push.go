package services

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// PushService sends APNs notifications to users who are not connected to
// the WebSocket hub. Disabled (all sends become no-ops) when no
// certificate is configured.
type PushService struct {
	client *apns2.Client
	topic  string
}

// NewPushService creates a new push service from a .p12 certificate.
// An empty certPath returns a disabled service.
func NewPushService(certPath, certPassword, topic string, production bool) (*PushService, error) {
	if certPath == "" {
		return &PushService{}, nil
	}

	cert, err := certificate.FromP12File(certPath, certPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert).Development()
	if production {
		client = apns2.NewClient(cert).Production()
	}

	return &PushService{client: client, topic: topic}, nil
}

// Enabled reports whether pushes will actually be sent
func (s *PushService) Enabled() bool {
	return s.client != nil
}

// SendGiftReceived notifies a device that a friend sent a gift.
// Fire-and-forget: delivery failures are logged, never propagated.
func (s *PushService) SendGiftReceived(deviceToken, fromName string) {
	s.send(deviceToken, fmt.Sprintf("%s sent your tree a gift", fromName))
}

// SendFriendAccepted notifies a device that a friend request was accepted.
func (s *PushService) SendFriendAccepted(deviceToken, friendName string) {
	s.send(deviceToken, fmt.Sprintf("%s accepted your friend request", friendName))
}

func (s *PushService) send(deviceToken, body string) {
	if s.client == nil || deviceToken == "" {
		return
	}

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload:     payload.NewPayload().AlertBody(body).Sound("default"),
	}

	go func() {
		res, err := s.client.Push(notification)
		if err != nil {
			log.Error().Err(err).Msg("Failed to send push notification")
			return
		}
		if !res.Sent() {
			log.Warn().
				Int("status", res.StatusCode).
				Str("reason", res.Reason).
				Msg("Push notification rejected")
		}
	}()
}
