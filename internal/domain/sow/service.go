package sow

import (
	"context"
	"fmt"
	"slices"
	"time"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/core/tx"
	"granja/internal/core/types"
	"granja/internal/domain"
	"granja/internal/domain/cycle"
	"granja/pkg/logger"
)

const (
	entitySow    = "sow"
	entityCycle  = "reproductive_record"
	entityPiglet = "piglet"
	entityEntry  = "critical_entry"
)

// Service provides business logic for the sow aggregate. Every mutation reads
// the whole aggregate, applies the change, validates and writes it back with
// the version it read.
type Service struct {
	repo      Repository
	txManager tx.Manager
	hooks     *domain.HookRegistry[*Sow]
	now       func() time.Time
}

// ServiceConfig configures the sow service.
type ServiceConfig struct {
	Repo      Repository
	TxManager tx.Manager       // Optional - defaults to tx.Nop
	Clock     func() time.Time // Optional - defaults to time.Now
}

// NewService creates a new sow service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		txManager: cfg.TxManager,
		hooks:     domain.NewHookRegistry[*Sow](),
		now:       cfg.Clock,
	}
	if s.txManager == nil {
		s.txManager = tx.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Hooks returns the hook registry for external registration.
func (s *Service) Hooks() *domain.HookRegistry[*Sow] {
	return s.hooks
}

// Today returns the service clock's current date.
func (s *Service) Today() types.Date {
	return types.DateOf(s.now())
}

// Patch lists the editable sow fields; nil means unchanged.
type Patch struct {
	PigID         *string
	Name          *string
	Breed         *string
	BirthDate     *types.Date
	EntryDate     *types.Date
	Origin        *string
	Status        *Status
	Weight        *types.Weight
	BodyCondition *float64
	Photos        []string
}

// Closure ends a sow's productive life.
type Closure struct {
	Status     Status
	ExitDate   *types.Date
	ExitReason string
}

// Register creates a new active sow. Nested records are not accepted; they
// are added through the child operations.
func (s *Service) Register(ctx context.Context, in *Sow) (*Sow, error) {
	agg := New(in.PigID)
	agg.Name = in.Name
	agg.Breed = in.Breed
	agg.BirthDate = in.BirthDate
	agg.EntryDate = in.EntryDate
	agg.Origin = in.Origin
	agg.Status = in.Status
	agg.Weight = in.Weight
	agg.BodyCondition = in.BodyCondition
	agg.Photos = in.Photos
	agg.CreatedAt = s.now().UTC()
	agg.UpdatedAt = agg.CreatedAt
	agg.Normalize()

	if err := agg.Validate(ctx); err != nil {
		return nil, s.reject(ctx, "register", err)
	}
	if agg.Status != StatusActive {
		var errs apperror.FieldErrors
		errs.Add("status", apperror.RuleTransition, "a new sow must be registered as activa")
		return nil, s.reject(ctx, "register", errs.Err())
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, domain.BeforeSave, agg); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, agg); err != nil {
			return fmt.Errorf("create sow: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, "register", err)
	}

	s.afterSave(ctx, "register", agg)
	return agg, nil
}

// Get returns the aggregate. Reads are allowed in any status.
func (s *Service) Get(ctx context.Context, sowID id.ID) (*Sow, error) {
	agg, err := s.repo.GetByID(ctx, sowID)
	if err != nil {
		return nil, normalizeGetErr(err, entitySow, sowID)
	}
	return agg, nil
}

// List returns a page of sows.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Sow], error) {
	if filter.Limit <= 0 {
		filter.Limit = domain.DefaultListFilter().Limit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

// All returns every sow with the given status (any when empty).
func (s *Service) All(ctx context.Context, status Status) ([]*Sow, error) {
	return s.repo.All(ctx, status)
}

// Update applies a patch to the sow's own fields. version must match the
// stored version.
func (s *Service) Update(ctx context.Context, sowID id.ID, patch Patch, version int) (*Sow, error) {
	if version <= 0 {
		var errs apperror.FieldErrors
		errs.Add("version", apperror.RuleRequired, "version is required for updates")
		return nil, s.reject(ctx, "update", errs.Err())
	}
	return s.mutate(ctx, "update", sowID, version, func(agg *Sow) error {
		if patch.Status != nil && *patch.Status != agg.Status {
			var errs apperror.FieldErrors
			errs.Add("status", apperror.RuleTransition, "status changes only through lifecycle closure")
			return errs.Err()
		}
		applyPatch(agg, patch)
		agg.Normalize()
		return agg.Validate(ctx)
	})
}

func applyPatch(agg *Sow, p Patch) {
	if p.PigID != nil {
		agg.PigID = *p.PigID
	}
	if p.Name != nil {
		agg.Name = *p.Name
	}
	if p.Breed != nil {
		agg.Breed = *p.Breed
	}
	if p.BirthDate != nil {
		agg.BirthDate = p.BirthDate
	}
	if p.EntryDate != nil {
		agg.EntryDate = p.EntryDate
	}
	if p.Origin != nil {
		agg.Origin = *p.Origin
	}
	if p.Weight != nil {
		agg.Weight = p.Weight
	}
	if p.BodyCondition != nil {
		agg.BodyCondition = p.BodyCondition
	}
	if p.Photos != nil {
		agg.Photos = p.Photos
	}
}

// Close moves an active sow to a terminal status. After closure the record
// only accepts reads and deletion.
func (s *Service) Close(ctx context.Context, sowID id.ID, c Closure, version int) (*Sow, error) {
	return s.mutate(ctx, "close", sowID, version, func(agg *Sow) error {
		var errs apperror.FieldErrors
		if !c.Status.IsTerminal() {
			errs.Add("status", apperror.RuleEnum, "closure status must be descartada, muerta or vendida")
			return errs.Err()
		}
		agg.Status = c.Status
		agg.ExitDate = c.ExitDate
		if !types.Present(agg.ExitDate) {
			today := s.Today()
			agg.ExitDate = &today
		}
		agg.ExitReason = c.ExitReason
		agg.Normalize()
		return agg.Validate(ctx)
	})
}

// Delete removes the sow and everything it owns. Allowed in any status.
func (s *Service) Delete(ctx context.Context, sowID id.ID) error {
	var agg *Sow
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		agg, err = s.repo.GetByID(ctx, sowID)
		if err != nil {
			return normalizeGetErr(err, entitySow, sowID)
		}
		if err := s.repo.Delete(ctx, sowID); err != nil {
			return fmt.Errorf("delete sow: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.reject(ctx, "delete", err)
	}

	if err := s.hooks.Run(ctx, domain.AfterDelete, agg); err != nil {
		logger.Warn(ctx, "after-delete hook failed", "sow_id", sowID, "error", err)
	}
	logger.Info(ctx, "sow deleted", "sow_id", sowID, "pig_id", agg.PigID)
	return nil
}

// AddCycle appends a new reproductive record. A zero cycleNumber is assigned
// as max+1.
func (s *Service) AddCycle(ctx context.Context, sowID id.ID, in cycle.Cycle, version int) (*Sow, id.ID, error) {
	newID := id.New()
	agg, err := s.mutate(ctx, "add_cycle", sowID, version, func(agg *Sow) error {
		c := in
		c.ID = newID
		if c.CycleNumber == 0 {
			c.CycleNumber = agg.NextCycleNumber()
		}
		c.Normalize()
		if err := cycle.Validate(&c, agg.ReproductiveRecords); err != nil {
			return err
		}
		agg.ReproductiveRecords = append(agg.ReproductiveRecords, c)
		return nil
	})
	if err != nil {
		return nil, id.Nil(), err
	}
	return agg, newID, nil
}

// UpdateCycle replaces a reproductive record in place. The derived state may
// only move forward.
func (s *Service) UpdateCycle(ctx context.Context, sowID, cycleID id.ID, in cycle.Cycle, version int) (*Sow, error) {
	return s.mutate(ctx, "update_cycle", sowID, version, func(agg *Sow) error {
		idx := agg.FindCycle(cycleID)
		if idx < 0 {
			return apperror.NewNotFound(entityCycle, cycleID)
		}
		prev := agg.CycleStates()[cycleID]

		c := in
		c.ID = cycleID
		if c.CycleNumber == 0 {
			c.CycleNumber = agg.ReproductiveRecords[idx].CycleNumber
		}
		c.Normalize()
		if err := cycle.Validate(&c, agg.ReproductiveRecords); err != nil {
			return err
		}

		agg.ReproductiveRecords[idx] = c
		next := agg.CycleStates()[cycleID]
		return cycle.ValidateTransition(prev, next)
	})
}

// DeleteCycle removes a reproductive record. Piglets and abortions that
// referenced it become unassigned.
func (s *Service) DeleteCycle(ctx context.Context, sowID, cycleID id.ID, version int) (*Sow, error) {
	return s.mutate(ctx, "delete_cycle", sowID, version, func(agg *Sow) error {
		idx := agg.FindCycle(cycleID)
		if idx < 0 {
			return apperror.NewNotFound(entityCycle, cycleID)
		}
		agg.ReproductiveRecords = slices.Delete(agg.ReproductiveRecords, idx, idx+1)
		for i := range agg.Piglets {
			if ref := agg.Piglets[i].ReferenceCycleID; ref != nil && *ref == cycleID {
				agg.Piglets[i].ReferenceCycleID = nil
			}
		}
		agg.CriticalPeriods.DetachCycle(cycleID)
		return nil
	})
}

// AddPiglet appends a piglet to the sow.
func (s *Service) AddPiglet(ctx context.Context, sowID id.ID, in Piglet, version int) (*Sow, id.ID, error) {
	newID := id.New()
	agg, err := s.mutate(ctx, "add_piglet", sowID, version, func(agg *Sow) error {
		p := in
		p.ID = newID
		p.Normalize()
		if err := validatePiglet(&p, agg); err != nil {
			return err
		}
		agg.Piglets = append(agg.Piglets, p)
		return nil
	})
	if err != nil {
		return nil, id.Nil(), err
	}
	return agg, newID, nil
}

// UpdatePiglet replaces a piglet record.
func (s *Service) UpdatePiglet(ctx context.Context, sowID, pigletID id.ID, in Piglet, version int) (*Sow, error) {
	return s.mutate(ctx, "update_piglet", sowID, version, func(agg *Sow) error {
		idx := agg.FindPiglet(pigletID)
		if idx < 0 {
			return apperror.NewNotFound(entityPiglet, pigletID)
		}
		p := in
		p.ID = pigletID
		p.Normalize()
		if err := validatePiglet(&p, agg); err != nil {
			return err
		}
		agg.Piglets[idx] = p
		return nil
	})
}

// DeletePiglet removes a piglet record.
func (s *Service) DeletePiglet(ctx context.Context, sowID, pigletID id.ID, version int) (*Sow, error) {
	return s.mutate(ctx, "delete_piglet", sowID, version, func(agg *Sow) error {
		idx := agg.FindPiglet(pigletID)
		if idx < 0 {
			return apperror.NewNotFound(entityPiglet, pigletID)
		}
		agg.Piglets = slices.Delete(agg.Piglets, idx, idx+1)
		return nil
	})
}

// mutate runs the read-modify-write cycle for one aggregate. version 0 skips
// the up-front version comparison; the store still rejects a write whose
// read version is stale.
func (s *Service) mutate(ctx context.Context, op string, sowID id.ID, version int, fn func(agg *Sow) error) (*Sow, error) {
	var out *Sow
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		agg, err := s.repo.GetByID(ctx, sowID)
		if err != nil {
			return normalizeGetErr(err, entitySow, sowID)
		}
		if agg.Status.IsTerminal() {
			return apperror.NewTerminalStatus(sowID, string(agg.Status))
		}
		if version > 0 && agg.Version != version {
			return apperror.NewConcurrentModification(entitySow, sowID).
				WithDetail("expectedVersion", version).
				WithDetail("currentVersion", agg.Version)
		}

		if err := fn(agg); err != nil {
			return err
		}
		agg.SyncReproductiveStatus()
		agg.UpdatedAt = s.now().UTC()

		if err := s.hooks.Run(ctx, domain.BeforeSave, agg); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, agg); err != nil {
			return fmt.Errorf("update sow: %w", err)
		}
		out = agg
		return nil
	})
	if err != nil {
		return nil, s.reject(ctx, op, err)
	}

	s.afterSave(ctx, op, out)
	return out, nil
}

func (s *Service) afterSave(ctx context.Context, op string, agg *Sow) {
	if err := s.hooks.Run(ctx, domain.AfterSave, agg); err != nil {
		// Log but don't fail - the write is committed
		logger.Warn(ctx, "after-save hook failed", "op", op, "sow_id", agg.ID, "error", err)
	}
	logger.Info(ctx, "sow saved", "op", op, "sow_id", agg.ID, "pig_id", agg.PigID, "version", agg.Version)
}

// reject logs a failed operation. Domain rejections are warnings; anything
// else is an error.
func (s *Service) reject(ctx context.Context, op string, err error) error {
	if appErr, ok := apperror.AsAppError(err); ok && appErr.HTTPStatus < 500 {
		logger.Warn(ctx, "sow operation rejected", "op", op, "code", appErr.Code, "message", appErr.Message)
		return err
	}
	logger.Error(ctx, "sow operation failed", "op", op, "error", err)
	return err
}

func normalizeGetErr(err error, entity string, entityID id.ID) error {
	if err == nil {
		return nil
	}
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(entity, entityID.String())
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", entity).WithDetail("id", entityID.String())
}
