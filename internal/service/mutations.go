package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kirychukyurii/hostdesk/internal/model"
	"github.com/kirychukyurii/hostdesk/internal/repository"
)

// maxIPAttempts bounds retries when a minted IP collides with an existing host
const maxIPAttempts = 16

// stamp fills the fields of change records the store does not assign
func (s *inventoryService) stamp(ctx context.Context, changes []model.ChangeRecord, remark string) []model.ChangeRecord {
	op := OperatorFrom(ctx)
	date := s.today()
	for i := range changes {
		changes[i].ID = uuid.NewString()
		changes[i].SampleDate = date
		changes[i].Operator = op
		if changes[i].Remark == "" {
			changes[i].Remark = remark
		}
	}
	return changes
}

// mutate applies fn to the host atomically and stamps the resulting status changes
func (s *inventoryService) mutate(ctx context.Context, ip, action string, fn func(h *model.Host) error) (model.Host, error) {
	h, err := s.store.MutateHost(ctx, ip, func(h *model.Host) ([]model.ChangeRecord, error) {
		before := *h
		if err := fn(h); err != nil {
			return nil, err
		}
		return s.stamp(ctx, model.StatusChanges(&before, h), action), nil
	})
	if err != nil {
		err = classify(err)
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) {
			s.logger.Error("host mutation failed",
				slog.String("action", action),
				slog.String("ip", ip),
				slog.String("error", err.Error()),
			)
		}
		return model.Host{}, err
	}

	s.invalidate()
	s.logger.Info("host updated",
		slog.String("action", action),
		slog.String("ip", ip),
		slog.String("operator", OperatorFrom(ctx)),
	)
	return h, nil
}

// AddHost validates req and stores a new host under a freshly minted IP
func (s *inventoryService) AddHost(ctx context.Context, req model.NewHost) (model.Host, error) {
	if err := s.validate.Struct(req); err != nil {
		return model.Host{}, fromValidator(err)
	}

	for range maxIPAttempts {
		h := req.Host(s.nextIP())
		err := s.store.CreateHost(ctx, h)
		if errors.Is(err, repository.ErrHostExists) {
			continue
		}
		if err != nil {
			return model.Host{}, classify(err)
		}

		s.invalidate()
		s.logger.Info("host added",
			slog.String("ip", h.IP),
			slog.String("operator", OperatorFrom(ctx)),
		)
		return h, nil
	}
	return model.Host{}, fmt.Errorf("%w: no free ip after %d attempts", ErrConflict, maxIPAttempts)
}

// UpdateHost applies a partial update. The IP cannot change.
func (s *inventoryService) UpdateHost(ctx context.Context, ip string, patch model.HostPatch) (model.Host, error) {
	if err := s.validate.Struct(patch); err != nil {
		return model.Host{}, fromValidator(err)
	}
	return s.mutate(ctx, ip, "host update", func(h *model.Host) error {
		patch.Apply(h)
		return nil
	})
}

// DeleteHost soft-deletes the host; deleting twice is a no-op
func (s *inventoryService) DeleteHost(ctx context.Context, ip string) (model.Host, error) {
	return s.mutate(ctx, ip, "host delete", func(h *model.Host) error {
		h.EnableStatus = model.EnableDeleted
		return nil
	})
}

// RestoreHostStatus resets management and device status to normal
func (s *inventoryService) RestoreHostStatus(ctx context.Context, ip string) (model.Host, error) {
	return s.mutate(ctx, ip, "status restore", func(h *model.Host) error {
		h.ManagementStatus = model.ManagementNormal
		h.DeviceStatus = model.DeviceNormal
		return nil
	})
}

// ApplyFromPool assigns a poolable host to a new owner. The poolable check
// runs inside the atomic mutation so concurrent applications cannot both win.
func (s *inventoryService) ApplyFromPool(ctx context.Context, ip string, req model.PoolApplication) (model.Host, error) {
	if err := s.validate.Struct(req); err != nil {
		return model.Host{}, fromValidator(err)
	}
	return s.mutate(ctx, ip, "pool application", func(h *model.Host) error {
		if !h.IsPoolable() {
			return fmt.Errorf("%w: host %s is not in the public pool", ErrConflict, ip)
		}
		h.ManagementStatus = model.ManagementNormal
		h.Owner = req.Owner
		h.Department = req.Department
		h.Purpose = req.Purpose
		return nil
	})
}
