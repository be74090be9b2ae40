package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgersync/server/internal/models"
	"github.com/ledgersync/server/internal/repository"
)

// DeviceService handles device pairing and lifecycle. Pairing uses a
// short-lived single-use token of the form "<id>.<secret>"; only the bcrypt
// hash of the secret half is stored.
type DeviceService struct {
	devices    repository.DeviceRepo
	businesses repository.BusinessRepo
	tokens     repository.PairingTokenRepo
	maxDevices int
	tokenTTL   time.Duration
}

// NewDeviceService creates a new DeviceService
func NewDeviceService(
	devices repository.DeviceRepo,
	businesses repository.BusinessRepo,
	tokens repository.PairingTokenRepo,
	maxDevices int,
	tokenTTLMinutes int,
) *DeviceService {
	if maxDevices <= 0 {
		maxDevices = 5
	}
	if tokenTTLMinutes <= 0 {
		tokenTTLMinutes = 15
	}
	return &DeviceService{
		devices:    devices,
		businesses: businesses,
		tokens:     tokens,
		maxDevices: maxDevices,
		tokenTTL:   time.Duration(tokenTTLMinutes) * time.Minute,
	}
}

// IssuePairingToken creates a single-use pairing token for the business.
// The plaintext token is only ever returned here.
func (s *DeviceService) IssuePairingToken(ctx context.Context, businessID string) (*models.PairingTokenResponse, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return nil, fmt.Errorf("failed to generate pairing secret: %w", err)
	}
	secret := hex.EncodeToString(bytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pairing secret: %w", err)
	}

	now := time.Now().UTC()
	token := &models.PairingToken{
		ID:         uuid.New().String(),
		BusinessID: businessID,
		SecretHash: string(hash),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.tokenTTL),
	}
	if err := s.tokens.Add(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store pairing token: %w", err)
	}

	return &models.PairingTokenResponse{
		PairingToken: token.ID + "." + secret,
		ExpiresAt:    token.ExpiresAt,
	}, nil
}

// PairDevice redeems a pairing token and registers the device. Re-pairing an
// existing device id reactivates it instead of creating a duplicate row.
func (s *DeviceService) PairDevice(ctx context.Context, req *models.PairDeviceRequest) (*models.Device, error) {
	id, secret, ok := strings.Cut(req.PairingToken, ".")
	if !ok || id == "" || secret == "" {
		return nil, ErrPairingTokenInvalid
	}

	token, err := s.tokens.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pairing token: %w", err)
	}
	if token == nil {
		return nil, ErrPairingTokenInvalid
	}
	if token.Used || token.Expired(time.Now().UTC()) {
		return nil, ErrPairingTokenExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(token.SecretHash), []byte(secret)); err != nil {
		return nil, ErrPairingTokenInvalid
	}

	business, err := s.businesses.GetByID(ctx, token.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	if business == nil || !business.IsActive {
		return nil, ErrBusinessNotFound
	}

	device, err := models.NewDevice(business.ID, req.DeviceID, req.DeviceName, req.DeviceType)
	if err != nil {
		return nil, err
	}

	existing, err := s.devices.Get(ctx, business.ID, device.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if existing != nil {
		if err := s.devices.Reactivate(ctx, business.ID, device.DeviceID, device.DeviceName, device.DeviceType); err != nil {
			return nil, fmt.Errorf("failed to reactivate device: %w", err)
		}
		if err := s.tokens.MarkUsed(ctx, token.ID, device.DeviceID); err != nil {
			return nil, fmt.Errorf("failed to consume pairing token: %w", err)
		}
		return s.devices.Get(ctx, business.ID, device.DeviceID)
	}

	count, err := s.devices.CountActive(ctx, business.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count devices: %w", err)
	}
	if count >= s.maxDevices {
		return nil, ErrDeviceLimitReached
	}

	if err := s.devices.Add(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to add device: %w", err)
	}
	if err := s.tokens.MarkUsed(ctx, token.ID, device.DeviceID); err != nil {
		return nil, fmt.Errorf("failed to consume pairing token: %w", err)
	}
	return device, nil
}

// ListDevices returns the business's active devices
func (s *DeviceService) ListDevices(ctx context.Context, businessID string) ([]models.DeviceResponse, error) {
	devices, err := s.devices.ListActive(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	responses := make([]models.DeviceResponse, 0, len(devices))
	for _, d := range devices {
		responses = append(responses, d.ToResponse())
	}
	return responses, nil
}

// RevokeDevice deactivates a device by its server row id. A revoked device
// fails pull/push/status until it is paired again.
func (s *DeviceService) RevokeDevice(ctx context.Context, businessID, id string) error {
	revoked, err := s.devices.Revoke(ctx, businessID, id)
	if err != nil {
		return fmt.Errorf("failed to revoke device: %w", err)
	}
	if !revoked {
		return ErrDeviceNotFound
	}
	return nil
}
