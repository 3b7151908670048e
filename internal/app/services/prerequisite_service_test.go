package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/pkg/apperrors"
)

func addEdge(t *testing.T, f *fixture, course, prerequisite int64) error {
	t.Helper()
	_, err := f.svc.Prerequisite.AddPrerequisite(context.Background(), course, dto.AddPrerequisiteRequest{PrerequisiteID: prerequisite, ActorID: 1})
	return err
}

func TestAddPrerequisite(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Prerequisite.AddPrerequisite(context.Background(), f.cs101.ID, dto.AddPrerequisiteRequest{PrerequisiteID: f.math101.ID})
	require.NoError(t, err)
	assert.Equal(t, "CS101", resp.Course.Code)
	assert.Equal(t, "MATH101", resp.Prerequisite.Code)

	assert.ErrorIs(t, addEdge(t, f, f.cs101.ID, f.math101.ID), apperrors.ErrConflict)
	assert.ErrorIs(t, addEdge(t, f, f.cs101.ID, 999), apperrors.ErrResourceNotFound)
	assert.ErrorIs(t, addEdge(t, f, f.cs101.ID, f.cs101.ID), apperrors.ErrBadRequest)
}

func TestAddPrerequisiteRejectsCycles(t *testing.T) {
	for _, length := range []int{2, 5} {
		t.Run(fmt.Sprintf("length %d", length), func(t *testing.T) {
			f := newFixture(t)
			chain := make([]models.Course, length)
			for i := range chain {
				chain[i] = f.store.AddCourse(models.Course{Code: fmt.Sprintf("C%d", i)})
			}
			// C0 -> C1 -> ... -> C(n-1)
			for i := 0; i+1 < length; i++ {
				require.NoError(t, addEdge(t, f, chain[i].ID, chain[i+1].ID))
			}
			before := f.store.PrerequisiteEdgeCount()

			err := addEdge(t, f, chain[length-1].ID, chain[0].ID)
			require.ErrorIs(t, err, apperrors.ErrCycleDetected)
			assert.Equal(t, apperrors.KindCycleDetected, apperrors.KindOf(err))
			assert.Equal(t, before, f.store.PrerequisiteEdgeCount(), "graph must be unchanged")
		})
	}

	t.Run("self loop", func(t *testing.T) {
		f := newFixture(t)
		before := f.store.PrerequisiteEdgeCount()
		assert.ErrorIs(t, addEdge(t, f, f.cs101.ID, f.cs101.ID), apperrors.ErrBadRequest)
		assert.Equal(t, before, f.store.PrerequisiteEdgeCount())
	})
}

func TestConcurrentEdgesCannotCloseCycle(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		a := f.store.AddCourse(models.Course{Code: "A"})
		b := f.store.AddCourse(models.Course{Code: "B"})

		errs := make([]error, 2)
		var g errgroup.Group
		g.Go(func() error { errs[0] = addEdge(t, f, a.ID, b.ID); return nil })
		g.Go(func() error { errs[1] = addEdge(t, f, b.ID, a.ID); return nil })
		require.NoError(t, g.Wait())

		failed := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, apperrors.ErrCycleDetected)
				failed++
			}
		}
		assert.Equal(t, 1, failed)
	}
}

func TestAddPrerequisiteToDeletedCourse(t *testing.T) {
	f := newFixture(t)
	gone := f.store.AddCourse(models.Course{Code: "OLD100"})
	require.NoError(t, f.svc.Prerequisite.DeleteCourse(context.Background(), gone.ID, 1))

	assert.ErrorIs(t, addEdge(t, f, f.cs101.ID, gone.ID), apperrors.ErrResourceNotFound)
}

func TestRemovePrerequisite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Prerequisite.RemovePrerequisite(ctx, f.math201.ID, f.math101.ID, 1))
	err := f.svc.Prerequisite.RemovePrerequisite(ctx, f.math201.ID, f.math101.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)

	// With the edge gone MATH201 is open to everyone.
	st := f.student(t, "S1")
	f.mustEnroll(t, st.ID, f.math201A.ID)
}

func TestGetPrerequisiteChain(t *testing.T) {
	f := newFixture(t)
	math301 := f.store.AddCourse(models.Course{Code: "MATH301", Name: "Calculus III"})
	linear := f.store.AddCourse(models.Course{Code: "MATH210", Name: "Linear Algebra"})
	require.NoError(t, addEdge(t, f, math301.ID, f.math201.ID))
	require.NoError(t, addEdge(t, f, math301.ID, linear.ID))
	require.NoError(t, addEdge(t, f, linear.ID, f.math101.ID))

	chain, err := f.svc.Prerequisite.GetPrerequisiteChain(context.Background(), math301.ID)
	require.NoError(t, err)
	assert.Equal(t, "MATH301", chain.Course.Code)

	var codes []string
	depth := map[string]int{}
	for _, n := range chain.Nodes {
		codes = append(codes, n.Course.Code)
		depth[n.Course.Code] = n.Depth
	}
	// MATH101 is reachable twice but listed once.
	assert.ElementsMatch(t, []string{"MATH301", "MATH201", "MATH210", "MATH101"}, codes)
	assert.Equal(t, 0, depth["MATH301"])
	assert.Equal(t, 1, depth["MATH201"])
	assert.Equal(t, 2, depth["MATH101"])

	require.Len(t, chain.Nodes[0].Prerequisites, 2)

	_, err = f.svc.Prerequisite.GetPrerequisiteChain(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestTransitivePrerequisitesIsRestartable(t *testing.T) {
	f := newFixture(t)
	seq := f.svc.Prerequisite.TransitivePrerequisites(context.Background(), f.math201.ID)

	for range 2 {
		var ids []int64
		for n, err := range seq {
			require.NoError(t, err)
			ids = append(ids, n.CourseID)
		}
		assert.Equal(t, []int64{f.math201.ID, f.math101.ID}, ids)
	}
}

func TestDeleteCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Prerequisite.DeleteCourse(ctx, f.cs101.ID, 1)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 2, apperrors.DetailsOf(err)["offerings"])

	listed := f.store.AddCourse(models.Course{Code: "HIST100"})
	f.store.AddCurriculumUsage(listed.ID)
	err = f.svc.Prerequisite.DeleteCourse(ctx, listed.ID, 1)
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 1, apperrors.DetailsOf(err)["curriculums"])

	unused := f.store.AddCourse(models.Course{Code: "ART100"})
	require.NoError(t, f.svc.Prerequisite.DeleteCourse(ctx, unused.ID, 1))
	assert.ErrorIs(t, f.svc.Prerequisite.DeleteCourse(ctx, unused.ID, 1), apperrors.ErrResourceNotFound)

	c, err := f.store.Repos().Courses.GetCourseByID(ctx, unused.ID)
	require.NoError(t, err)
	assert.True(t, c.IsDeleted())
}
