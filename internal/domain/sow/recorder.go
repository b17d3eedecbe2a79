package sow

import (
	"context"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/domain/critical"
	"granja/internal/domain/cycle"
)

// Record validates a critical-period entry and stores it against the sow.
// Heat, gestation and abortion entries are appended to their logs and the new
// entry id is returned. A farrowing detail is merged into the referenced
// cycle, the merged cycle is validated again, and the cycle id is returned.
func (s *Service) Record(ctx context.Context, sowID id.ID, entry critical.Entry, version int) (*Sow, id.ID, error) {
	entry.Normalize()
	if err := entry.Validate(); err != nil {
		return nil, id.Nil(), s.reject(ctx, "record_"+string(entry.Kind()), err)
	}

	var recordID id.ID
	agg, err := s.mutate(ctx, "record_"+string(entry.Kind()), sowID, version, func(agg *Sow) error {
		switch e := entry.(type) {
		case *critical.FarrowingDetail:
			return mergeFarrowingDetail(agg, e, &recordID)
		case *critical.Abortion:
			if e.CycleID != nil && agg.FindCycle(*e.CycleID) < 0 {
				var errs apperror.FieldErrors
				errs.Add("cycleId", apperror.RuleReference, "cycle does not belong to this sow")
				return errs.Err()
			}
		}
		recordID, _ = agg.CriticalPeriods.Append(entry)
		return nil
	})
	if err != nil {
		return nil, id.Nil(), err
	}
	return agg, recordID, nil
}

func mergeFarrowingDetail(agg *Sow, d *critical.FarrowingDetail, recordID *id.ID) error {
	idx := agg.FindCycle(d.CycleID)
	if idx < 0 {
		return apperror.NewNotFound(entityCycle, d.CycleID)
	}

	merged := agg.ReproductiveRecords[idx]
	merged.Farrowing.Medications = cycle.Compact(merged.Farrowing.Medications)
	if err := d.MergeInto(&merged); err != nil {
		return err
	}
	merged.Normalize()
	if err := cycle.Validate(&merged, agg.ReproductiveRecords); err != nil {
		return err
	}
	agg.ReproductiveRecords[idx] = merged
	*recordID = merged.ID
	return nil
}

// DeleteCriticalEntry removes one heat, gestation or abortion entry.
// Farrowing details live inside the cycle and are edited through it.
func (s *Service) DeleteCriticalEntry(ctx context.Context, sowID id.ID, kind critical.Kind, entryID id.ID, version int) (*Sow, error) {
	return s.mutate(ctx, "delete_"+string(kind), sowID, version, func(agg *Sow) error {
		if kind == critical.KindFarrowingDetail {
			return apperror.NewValidation("farrowing details are part of the reproductive record; update the record instead").
				WithDetail("kind", kind)
		}
		if !agg.CriticalPeriods.Remove(kind, entryID) {
			return apperror.NewNotFound(entityEntry, entryID)
		}
		return nil
	})
}
