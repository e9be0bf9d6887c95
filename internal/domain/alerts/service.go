// Package alerts provides low-stock alert refresh after sales.
package alerts

import (
	"context"
	"fmt"

	"pharmacore/internal/core/id"
	"pharmacore/internal/core/types"
	"pharmacore/internal/domain/batches"
	"pharmacore/internal/domain/catalogs/medicine"
	"pharmacore/pkg/logger"
)

// LowStockAlert describes a medicine that dropped below its threshold.
type LowStockAlert struct {
	MedicineID   id.ID          `json:"medicineId"`
	MedicineName string         `json:"medicineName"`
	Remaining    types.Quantity `json:"remaining"`
	Threshold    types.Quantity `json:"threshold"`
}

// Notifier delivers alerts to some sink (dashboard, messenger, log).
// Delivery mechanics are outside this module.
type Notifier interface {
	Notify(ctx context.Context, alert LowStockAlert) error
}

// LogNotifier writes alerts to the application log.
// The default sink when nothing else is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, alert LowStockAlert) error {
	logger.Warn(ctx, "low stock alert",
		"medicine_id", alert.MedicineID,
		"medicine_name", alert.MedicineName,
		"remaining", alert.Remaining,
		"threshold", alert.Threshold,
	)
	return nil
}

// Service recomputes low-stock state for medicines touched by a sale.
type Service struct {
	medicines medicine.Repository
	batches   batches.Repository
	notifier  Notifier
}

// NewService creates an alert service.
func NewService(medicines medicine.Repository, batchRepo batches.Repository, notifier Notifier) *Service {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Service{
		medicines: medicines,
		batches:   batchRepo,
		notifier:  notifier,
	}
}

// RefreshForMedicines checks the given medicines against their alert
// thresholds and notifies for each one below it.
func (s *Service) RefreshForMedicines(ctx context.Context, medicineIDs []id.ID) error {
	if len(medicineIDs) == 0 {
		return nil
	}

	totals, err := s.batches.TotalRemainingByMedicine(ctx, medicineIDs)
	if err != nil {
		return fmt.Errorf("total remaining: %w", err)
	}

	for _, medID := range medicineIDs {
		med, err := s.medicines.GetByID(ctx, medID)
		if err != nil {
			return fmt.Errorf("get medicine %s: %w", medID, err)
		}
		if !med.HasAlertThreshold() {
			continue
		}

		remaining := totals[medID]
		if remaining >= med.MinAlertQuantity {
			continue
		}

		alert := LowStockAlert{
			MedicineID:   med.ID,
			MedicineName: med.Name,
			Remaining:    remaining,
			Threshold:    med.MinAlertQuantity,
		}
		if err := s.notifier.Notify(ctx, alert); err != nil {
			return fmt.Errorf("notify %s: %w", medID, err)
		}
	}

	return nil
}

// RefreshAsync runs the refresh in a goroutine after a sale commits.
// Best-effort: failures are logged and dropped, never surfaced to the sale.
func (s *Service) RefreshAsync(ctx context.Context, medicineIDs []id.ID) {
	if len(medicineIDs) == 0 {
		return
	}

	// Detach from the request lifetime but keep context values
	// (tx manager, user, trace).
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.RefreshForMedicines(bgCtx, medicineIDs); err != nil {
			logger.Warn(bgCtx, "low stock alert refresh failed", "error", err)
		}
	}()
}
