package services

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/app/prereq"
	"github.com/yigit/registrar/internal/app/repositories"
	"github.com/yigit/registrar/internal/pkg/apperrors"
)

// PrerequisiteService maintains the prerequisite graph and the course catalog lifecycle
type PrerequisiteService struct {
	store  repositories.Store
	audit  AuditService
	now    func() time.Time
	logger zerolog.Logger
}

// NewPrerequisiteService creates a new prerequisite service instance
func NewPrerequisiteService(store repositories.Store, audit AuditService, logger zerolog.Logger) *PrerequisiteService {
	return &PrerequisiteService{store: store, audit: audit, now: time.Now, logger: logger}
}

// liveCourse loads a course and treats a soft-deleted one as missing
func liveCourse(ctx context.Context, courses repositories.CourseStore, id int64) (*models.Course, error) {
	c, err := courses.GetCourseByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "course %d not found", id)
	}
	if c.IsDeleted() {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("course %d not found", id))
	}
	return c, nil
}

// AddPrerequisite adds the edge course -> prerequisite unless it would
// close a cycle. Insertions are serialized by a graph-wide lock so two
// concurrent edges cannot close a cycle together.
func (s *PrerequisiteService) AddPrerequisite(ctx context.Context, courseID int64, req dto.AddPrerequisiteRequest) (resp *dto.PrerequisiteEdgeResponse, err error) {
	ctx, span := tracer.Start(ctx, "PrerequisiteService.AddPrerequisite", trace.WithAttributes(
		attribute.Int64("course.id", courseID),
		attribute.Int64("prerequisite.id", req.PrerequisiteID),
	))
	start := time.Now()
	defer func() {
		observe("add_prerequisite", start, err)
		endSpan(span, err)
	}()

	if courseID <= 0 || req.PrerequisiteID <= 0 {
		return nil, apperrors.NewBadRequestError("course ids must be positive")
	}
	if courseID == req.PrerequisiteID {
		return nil, apperrors.NewBadRequestError("a course cannot be its own prerequisite")
	}

	var course, prerequisite *models.Course
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx *repositories.Repositories) error {
		if err := tx.Courses.LockPrerequisiteGraph(ctx); err != nil {
			return err
		}

		var err error
		if course, err = liveCourse(ctx, tx.Courses, courseID); err != nil {
			return err
		}
		if prerequisite, err = liveCourse(ctx, tx.Courses, req.PrerequisiteID); err != nil {
			return err
		}

		exists, err := tx.Courses.PrerequisiteExists(ctx, courseID, req.PrerequisiteID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.NewConflictError(fmt.Sprintf("%s is already a prerequisite of %s", prerequisite.Code, course.Code))
		}

		cycle, err := prereq.WouldCreateCycle(ctx, tx.Courses, courseID, req.PrerequisiteID)
		if err != nil {
			return err
		}
		if cycle {
			return apperrors.NewCycleDetectedError(fmt.Sprintf("adding %s as a prerequisite of %s would create a cycle", prerequisite.Code, course.Code)).
				WithDetail("courseId", courseID).
				WithDetail("prerequisiteId", req.PrerequisiteID)
		}

		_, err = tx.Courses.AddPrerequisite(ctx, courseID, req.PrerequisiteID)
		return err
	})
	if err != nil {
		return nil, contention(err)
	}

	logAudit(ctx, s.audit, s.logger, AuditEntry{
		Action: AuditAddPrerequisite, Resource: "course", ResourceID: courseID, ActorID: req.ActorID,
		After: map[string]int64{"prerequisiteId": req.PrerequisiteID},
	})
	s.logger.Info().Str("course", course.Code).Str("prerequisite", prerequisite.Code).Msg("Prerequisite added")
	return &dto.PrerequisiteEdgeResponse{Course: toCourseRef(course), Prerequisite: toCourseRef(prerequisite)}, nil
}

// RemovePrerequisite deletes the edge course -> prerequisite
func (s *PrerequisiteService) RemovePrerequisite(ctx context.Context, courseID, prerequisiteID, actorID int64) (err error) {
	ctx, span := tracer.Start(ctx, "PrerequisiteService.RemovePrerequisite", trace.WithAttributes(
		attribute.Int64("course.id", courseID),
		attribute.Int64("prerequisite.id", prerequisiteID),
	))
	start := time.Now()
	defer func() {
		observe("remove_prerequisite", start, err)
		endSpan(span, err)
	}()

	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx *repositories.Repositories) error {
		removed, err := tx.Courses.RemovePrerequisite(ctx, courseID, prerequisiteID)
		if err != nil {
			return err
		}
		if !removed {
			return apperrors.NewResourceNotFoundError(fmt.Sprintf("course %d has no prerequisite %d", courseID, prerequisiteID))
		}
		return nil
	})
	if err != nil {
		return contention(err)
	}

	logAudit(ctx, s.audit, s.logger, AuditEntry{
		Action: AuditRemovePrerequisite, Resource: "course", ResourceID: courseID, ActorID: actorID,
		Before: map[string]int64{"prerequisiteId": prerequisiteID},
	})
	return nil
}

// TransitivePrerequisites lazily walks every course reachable from courseID
// through prerequisite edges, courseID first
func (s *PrerequisiteService) TransitivePrerequisites(ctx context.Context, courseID int64) iter.Seq2[prereq.Node, error] {
	return prereq.Chain(ctx, s.store.Repos().Courses, courseID)
}

// GetPrerequisiteChain materializes the transitive prerequisites of a course for display
func (s *PrerequisiteService) GetPrerequisiteChain(ctx context.Context, courseID int64) (*dto.PrerequisiteChainResponse, error) {
	courses := s.store.Repos().Courses
	root, err := liveCourse(ctx, courses, courseID)
	if err != nil {
		return nil, err
	}

	nodes, err := prereq.Collect(s.TransitivePrerequisites(ctx, courseID))
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.CourseID)
	}
	byID, err := courses.GetCoursesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := &dto.PrerequisiteChainResponse{Course: toCourseRef(root), Nodes: make([]dto.ChainNodeResponse, 0, len(nodes))}
	for _, n := range nodes {
		ref := dto.CourseRef{ID: n.CourseID}
		if c, ok := byID[n.CourseID]; ok {
			ref = toCourseRef(c)
		}
		resp.Nodes = append(resp.Nodes, dto.ChainNodeResponse{
			Course:        ref,
			Depth:         n.Depth,
			Prerequisites: courseRefs(n.Prerequisites, byID),
		})
	}
	return resp, nil
}

// DeleteCourse soft-deletes a course that no curriculum or offering references
func (s *PrerequisiteService) DeleteCourse(ctx context.Context, courseID, actorID int64) (err error) {
	ctx, span := tracer.Start(ctx, "PrerequisiteService.DeleteCourse", trace.WithAttributes(attribute.Int64("course.id", courseID)))
	start := time.Now()
	defer func() {
		observe("delete_course", start, err)
		endSpan(span, err)
	}()

	var course *models.Course
	err = s.store.WithTransaction(ctx, func(ctx context.Context, tx *repositories.Repositories) error {
		var err error
		if course, err = liveCourse(ctx, tx.Courses, courseID); err != nil {
			return err
		}
		usages, err := tx.Courses.CountCourseUsages(ctx, courseID)
		if err != nil {
			return err
		}
		if usages.InUse() {
			return apperrors.NewConflictError(fmt.Sprintf("course %s is still in use", course.Code)).
				WithDetail("curriculums", usages.Curriculums).
				WithDetail("offerings", usages.Offerings)
		}
		return notFound(tx.Courses.SoftDeleteCourse(ctx, courseID, s.now()), "course %d not found", courseID)
	})
	if err != nil {
		return contention(err)
	}

	logAudit(ctx, s.audit, s.logger, AuditEntry{
		Action: AuditDeleteCourse, Resource: "course", ResourceID: courseID, ActorID: actorID, Before: course,
	})
	s.logger.Info().Str("course", course.Code).Msg("Course deleted")
	return nil
}
