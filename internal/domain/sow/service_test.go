package sow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"granja/internal/core/apperror"
	"granja/internal/core/id"
	"granja/internal/core/types"
	"granja/internal/domain"
	"granja/internal/domain/critical"
	"granja/internal/domain/cycle"
	"granja/internal/domain/sow"
	"granja/internal/infrastructure/storage/memory"
)

func newService(t *testing.T) *sow.Service {
	t.Helper()
	clock := func() time.Time { return time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC) }
	return sow.NewService(sow.ServiceConfig{Repo: memory.NewStore(), Clock: clock})
}

func register(t *testing.T, svc *sow.Service, pigID string) *sow.Sow {
	t.Helper()
	s, err := svc.Register(context.Background(), &sow.Sow{PigID: pigID, Name: "Rosita", Breed: "Landrace"})
	require.NoError(t, err)
	return s
}

func serviceOn(date string) cycle.Cycle {
	return cycle.Cycle{Service: cycle.Service{Date: types.MustDate(date), Type: cycle.ServiceConventional}}
}

func TestRegister(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	s := register(t, svc, " C-101 ")
	assert.Equal(t, "C-101", s.PigID)
	assert.Equal(t, sow.StatusActive, s.Status)
	assert.Equal(t, sow.ReproEmpty, s.ReproductiveStatus)
	assert.Equal(t, 1, s.Version)

	_, err := svc.Register(ctx, &sow.Sow{PigID: "C-101"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	_, err = svc.Register(ctx, &sow.Sow{PigID: "C-102", Status: sow.StatusDead})
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Register(ctx, &sow.Sow{})
	assert.True(t, apperror.IsValidation(err))

	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rosita", got.Name)

	_, err = svc.Get(ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestCycleLifecycle_SyncsReproductiveStatus(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	s := register(t, svc, "C-200")

	s, cycleID, err := svc.AddCycle(ctx, s.ID, serviceOn("2024-01-10"), s.Version)
	require.NoError(t, err)
	require.Len(t, s.ReproductiveRecords, 1)
	assert.Equal(t, 1, s.ReproductiveRecords[0].CycleNumber)
	assert.Equal(t, sow.ReproServiced, s.ReproductiveStatus)

	c := s.ReproductiveRecords[0]
	c.PregnancyCheck = cycle.PregnancyCheck{Date: types.DatePtr("2024-02-05"), Result: cycle.ResultPositive}
	s, err = svc.UpdateCycle(ctx, s.ID, cycleID, c, s.Version)
	require.NoError(t, err)
	assert.Equal(t, sow.ReproPregnant, s.ReproductiveStatus)

	c.Farrowing.Date = types.DatePtr("2024-05-03")
	c.Litter = cycle.Litter{TotalBorn: cycle.IntPtr(12), BornAlive: cycle.IntPtr(11), Stillborn: cycle.IntPtr(1)}
	s, err = svc.UpdateCycle(ctx, s.ID, cycleID, c, 0)
	require.NoError(t, err)
	assert.Equal(t, sow.ReproLactating, s.ReproductiveStatus)

	c.Lactation.WeaningDate = types.DatePtr("2024-05-24")
	c.Lactation.PigletsWeaned = cycle.IntPtr(10)
	s, err = svc.UpdateCycle(ctx, s.ID, cycleID, c, 0)
	require.NoError(t, err)
	assert.Equal(t, sow.ReproWeaned, s.ReproductiveStatus)
	assert.Equal(t, 21, *s.ReproductiveRecords[0].Lactation.DurationDays)

	// Going back before farrowing is not allowed.
	back := c
	back.Farrowing = cycle.Farrowing{}
	back.Litter = cycle.Litter{}
	back.Lactation = cycle.Lactation{}
	_, err = svc.UpdateCycle(ctx, s.ID, cycleID, back, 0)
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.RuleTransition, appErr.Fields()[0].Rule)

	s, second, err := svc.AddCycle(ctx, s.ID, serviceOn("2024-05-30"), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, s.ReproductiveRecords[1].CycleNumber)
	assert.Equal(t, sow.ReproServiced, s.ReproductiveStatus)

	s, err = svc.DeleteCycle(ctx, s.ID, second, 0)
	require.NoError(t, err)
	assert.Len(t, s.ReproductiveRecords, 1)
	assert.Equal(t, sow.ReproWeaned, s.ReproductiveStatus)

	_, err = svc.DeleteCycle(ctx, s.ID, second, 0)
	assert.True(t, apperror.IsNotFound(err))
}

func TestAddCycle_ValidationIsFieldTagged(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	s := register(t, svc, "C-300")

	bad := serviceOn("2024-01-10")
	bad.Farrowing.Date = types.DatePtr("2024-05-03")
	bad.Litter = cycle.Litter{TotalBorn: cycle.IntPtr(10), BornAlive: cycle.IntPtr(9), Stillborn: cycle.IntPtr(3), Mummified: cycle.IntPtr(0)}

	_, _, err := svc.AddCycle(ctx, s.ID, bad, s.Version)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "litter.totalBorn", appErr.Fields()[0].Field)

	// The rejected write left the aggregate untouched.
	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ReproductiveRecords)
	assert.Equal(t, s.Version, got.Version)
}

func TestTerminalSow_RejectsEditsAllowsReads(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	s := register(t, svc, "C-400")
	s, _, err := svc.AddCycle(ctx, s.ID, serviceOn("2024-01-10"), 0)
	require.NoError(t, err)
	cycleID := s.ReproductiveRecords[0].ID

	s, err = svc.Close(ctx, s.ID, sow.Closure{Status: sow.StatusDiscarded, ExitReason: "baja productividad"}, s.Version)
	require.NoError(t, err)
	assert.Equal(t, sow.StatusDiscarded, s.Status)
	assert.Equal(t, "2024-09-01", s.ExitDate.String())

	name := "Otra"
	edits := map[string]func() error{
		"update": func() error {
			_, err := svc.Update(ctx, s.ID, sow.Patch{Name: &name}, s.Version)
			return err
		},
		"add cycle": func() error {
			_, _, err := svc.AddCycle(ctx, s.ID, serviceOn("2024-06-01"), 0)
			return err
		},
		"update cycle": func() error {
			_, err := svc.UpdateCycle(ctx, s.ID, cycleID, serviceOn("2024-01-10"), 0)
			return err
		},
		"delete cycle": func() error {
			_, err := svc.DeleteCycle(ctx, s.ID, cycleID, 0)
			return err
		},
		"add piglet": func() error {
			_, _, err := svc.AddPiglet(ctx, s.ID, sow.Piglet{Sex: sow.SexMale}, 0)
			return err
		},
		"record heat": func() error {
			_, _, err := svc.Record(ctx, s.ID, &critical.HeatDetection{Date: types.MustDate("2024-08-01")}, 0)
			return err
		},
		"close again": func() error {
			_, err := svc.Close(ctx, s.ID, sow.Closure{Status: sow.StatusSold}, 0)
			return err
		},
	}
	for name, edit := range edits {
		t.Run(name, func(t *testing.T) {
			err := edit()
			assert.True(t, apperror.IsTerminalStatus(err), "got %v", err)
			assert.Equal(t, 409, apperror.GetHTTPStatus(err))
		})
	}

	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sow.StatusDiscarded, got.Status)

	require.NoError(t, svc.Delete(ctx, s.ID))
	_, err = svc.Get(ctx, s.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdate_VersionAndStatusRules(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	s := register(t, svc, "C-500")

	name := "Paloma"
	updated, err := svc.Update(ctx, s.ID, sow.Patch{Name: &name}, s.Version)
	require.NoError(t, err)
	assert.Equal(t, s.Version+1, updated.Version)

	other := "Lucera"
	_, err = svc.Update(ctx, s.ID, sow.Patch{Name: &other}, s.Version)
	assert.True(t, apperror.IsConcurrentModification(err))

	_, err = svc.Update(ctx, s.ID, sow.Patch{Name: &other}, 0)
	assert.True(t, apperror.IsValidation(err))

	dead := sow.StatusDead
	_, err = svc.Update(ctx, s.ID, sow.Patch{Status: &dead}, updated.Version)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Close(ctx, s.ID, sow.Closure{Status: sow.StatusActive}, 0)
	assert.True(t, apperror.IsValidation(err))

	register(t, svc, "C-501")
	taken := "C-501"
	_, err = svc.Update(ctx, s.ID, sow.Patch{PigID: &taken}, updated.Version)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
}

func TestPiglets(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	s := register(t, svc, "C-600")
	s, cycleID, err := svc.AddCycle(ctx, s.ID, serviceOn("2024-01-10"), 0)
	require.NoError(t, err)

	unknown := id.New()
	_, _, err = svc.AddPiglet(ctx, s.ID, sow.Piglet{ReferenceCycleID: &unknown}, 0)
	assert.True(t, apperror.IsValidation(err))

	s, pigletID, err := svc.AddPiglet(ctx, s.ID, sow.Piglet{
		TagID:            "L-1",
		Sex:              "Hembra",
		BirthWeight:      types.KgPtr(0.65),
		ReferenceCycleID: &cycleID,
	}, 0)
	require.NoError(t, err)
	require.Len(t, s.Piglets, 1)
	p := s.Piglets[0]
	assert.Equal(t, sow.SexFemale, p.Sex)
	assert.Equal(t, sow.PigletAlive, p.Status)
	assert.True(t, p.LowBirthWeight())

	_, _, err = svc.AddPiglet(ctx, s.ID, sow.Piglet{TagID: "L-1"}, 0)
	assert.True(t, apperror.IsValidation(err))

	p.Status = sow.PigletSold
	p.StatusDate = types.DatePtr("2024-07-01")
	s, err = svc.UpdatePiglet(ctx, s.ID, pigletID, p, 0)
	require.NoError(t, err)
	assert.Equal(t, sow.PigletSold, s.Piglets[0].Status)

	s, err = svc.DeleteCycle(ctx, s.ID, cycleID, 0)
	require.NoError(t, err)
	assert.Nil(t, s.Piglets[0].ReferenceCycleID)

	s, err = svc.DeletePiglet(ctx, s.ID, pigletID, 0)
	require.NoError(t, err)
	assert.Empty(t, s.Piglets)

	_, err = svc.DeletePiglet(ctx, s.ID, pigletID, 0)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRecord(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	s := register(t, svc, "C-700")
	s, cycleID, err := svc.AddCycle(ctx, s.ID, serviceOn("2024-01-10"), 0)
	require.NoError(t, err)

	t.Run("abortion requires fields", func(t *testing.T) {
		_, _, err := svc.Record(ctx, s.ID, &critical.Abortion{Date: types.MustDate("2024-03-01")}, 0)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("abortion marks confirmed cycle aborted", func(t *testing.T) {
		c := s.ReproductiveRecords[0]
		c.PregnancyCheck.Result = cycle.ResultPositive
		updated, err := svc.UpdateCycle(ctx, s.ID, cycleID, c, 0)
		require.NoError(t, err)
		assert.Equal(t, sow.ReproPregnant, updated.ReproductiveStatus)

		updated, entryID, err := svc.Record(ctx, s.ID, &critical.Abortion{
			Date:          types.MustDate("2024-03-01"),
			GestationDays: cycle.IntPtr(51),
			FetusState:    critical.FetusFresh,
			ProbableCause: critical.CauseInfectious,
		}, 0)
		require.NoError(t, err)
		assert.False(t, id.IsNil(entryID))
		assert.Equal(t, sow.ReproEmpty, updated.ReproductiveStatus)
		assert.Equal(t, cycle.StateAborted, updated.CycleStates()[cycleID])

		updated, err = svc.DeleteCriticalEntry(ctx, s.ID, critical.KindAbortion, entryID, 0)
		require.NoError(t, err)
		assert.Equal(t, sow.ReproPregnant, updated.ReproductiveStatus)
	})

	t.Run("farrowing detail needs a farrowed cycle", func(t *testing.T) {
		_, _, err := svc.Record(ctx, s.ID, &critical.FarrowingDetail{CycleID: cycleID, DeliveryType: "normal"}, 0)
		assert.True(t, apperror.IsValidation(err))

		_, _, err = svc.Record(ctx, s.ID, &critical.FarrowingDetail{CycleID: id.New()}, 0)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("farrowing detail merges into the cycle", func(t *testing.T) {
		current, err := svc.Get(ctx, s.ID)
		require.NoError(t, err)
		c := current.ReproductiveRecords[0]
		c.Farrowing.Date = types.DatePtr("2024-05-03")
		_, err = svc.UpdateCycle(ctx, s.ID, cycleID, c, 0)
		require.NoError(t, err)

		temp := 39.5
		updated, recordID, err := svc.Record(ctx, s.ID, &critical.FarrowingDetail{
			CycleID:               cycleID,
			Date:                  types.DatePtr("2024-05-03"),
			DeliveryType:          "Distocico",
			AssistanceType:        "manual",
			PostPartumTemperature: &temp,
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, cycleID, recordID)
		f := updated.ReproductiveRecords[0].Farrowing
		assert.Equal(t, cycle.DeliveryDystocic, f.DeliveryType)
		assert.True(t, f.Assisted)
		assert.Equal(t, 39.5, *f.PostPartumTemperature)

		hot := 44.0
		_, _, err = svc.Record(ctx, s.ID, &critical.FarrowingDetail{CycleID: cycleID, PostPartumTemperature: &hot}, 0)
		assert.True(t, apperror.IsValidation(err))

		_, err = svc.DeleteCriticalEntry(ctx, s.ID, critical.KindFarrowingDetail, cycleID, 0)
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("heat detections append and delete", func(t *testing.T) {
		updated, heatID, err := svc.Record(ctx, s.ID, &critical.HeatDetection{Date: types.MustDate("2024-06-01"), Intensity: "media"}, 0)
		require.NoError(t, err)
		require.Len(t, updated.CriticalPeriods.HeatDetections, 1)

		_, err = svc.DeleteCriticalEntry(ctx, s.ID, critical.KindHeatDetection, id.New(), 0)
		assert.True(t, apperror.IsNotFound(err))

		updated, err = svc.DeleteCriticalEntry(ctx, s.ID, critical.KindHeatDetection, heatID, 0)
		require.NoError(t, err)
		assert.Empty(t, updated.CriticalPeriods.HeatDetections)
	})
}

func TestHooks_AfterSaveAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	var saved, deleted int
	svc.Hooks().OnAfterSave(func(context.Context, *sow.Sow) error { saved++; return nil })
	svc.Hooks().On(domain.AfterDelete, func(context.Context, *sow.Sow) error { deleted++; return nil })

	s := register(t, svc, "C-800")
	_, _, err := svc.AddCycle(ctx, s.ID, serviceOn("2024-01-10"), 0)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, s.ID))

	assert.Equal(t, 2, saved)
	assert.Equal(t, 1, deleted)
}

func TestList(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	register(t, svc, "B-2")
	register(t, svc, "A-1")
	c := register(t, svc, "C-3")
	_, err := svc.Close(ctx, c.ID, sow.Closure{Status: sow.StatusSold}, 0)
	require.NoError(t, err)

	page, err := svc.List(ctx, domain.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.TotalCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "A-1", page.Items[0].PigID)

	sold, err := svc.List(ctx, domain.ListFilter{Status: string(sow.StatusSold)})
	require.NoError(t, err)
	require.Len(t, sold.Items, 1)
	assert.Equal(t, "C-3", sold.Items[0].PigID)

	active, err := svc.All(ctx, sow.StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}
