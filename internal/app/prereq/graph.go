// Package prereq holds the traversal algorithms over the course prerequisite
// graph. Edges are read through EdgeSource so the same code runs against the
// pool, a transaction or the in-memory store.
package prereq

import (
	"context"
	"iter"
)

// EdgeSource resolves the immediate prerequisites of a course. Soft-deleted
// courses must not appear on either end of a returned edge.
type EdgeSource interface {
	PrerequisiteIDs(ctx context.Context, courseID int64) ([]int64, error)
}

// Reachable reports whether target can be reached from start by following
// prerequisite edges, using a breadth-first search.
func Reachable(ctx context.Context, edges EdgeSource, start, target int64) (bool, error) {
	if start == target {
		return true, nil
	}

	visited := map[int64]bool{start: true}
	queue := []int64{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		next, err := edges.PrerequisiteIDs(ctx, current)
		if err != nil {
			return false, err
		}
		for _, id := range next {
			if id == target {
				return true, nil
			}
			if !visited[id] {
				visited[id] = true
				queue = append(queue, id)
			}
		}
	}
	return false, nil
}

// WouldCreateCycle reports whether adding course -> prerequisite would close a
// cycle, i.e. course is already reachable from prerequisite.
func WouldCreateCycle(ctx context.Context, edges EdgeSource, courseID, prerequisiteID int64) (bool, error) {
	return Reachable(ctx, edges, prerequisiteID, courseID)
}

// Node is one course in a prerequisite chain.
type Node struct {
	CourseID      int64
	Depth         int   // 0 for the root course
	ParentID      int64 // 0 for the root course
	Prerequisites []int64
}

// Chain yields the root course and all of its transitive prerequisites in
// depth-first pre-order. Each course is yielded once even if reachable along
// several paths, and traversal terminates on cyclic input. The sequence is
// lazy and can be ranged over repeatedly; every range starts a fresh walk
// with its own visited set.
func Chain(ctx context.Context, edges EdgeSource, rootID int64) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		type frame struct {
			id, parent int64
			depth      int
		}

		visited := make(map[int64]bool)
		stack := []frame{{id: rootID}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[top.id] {
				continue
			}
			visited[top.id] = true

			if err := ctx.Err(); err != nil {
				yield(Node{}, err)
				return
			}
			ids, err := edges.PrerequisiteIDs(ctx, top.id)
			if err != nil {
				yield(Node{}, err)
				return
			}

			node := Node{CourseID: top.id, Depth: top.depth, ParentID: top.parent, Prerequisites: ids}
			if !yield(node, nil) {
				return
			}

			// Push in reverse so the first prerequisite is expanded first.
			for i := len(ids) - 1; i >= 0; i-- {
				if !visited[ids[i]] {
					stack = append(stack, frame{id: ids[i], parent: top.id, depth: top.depth + 1})
				}
			}
		}
	}
}

// Collect drains a chain into a slice, stopping at the first error.
func Collect(seq iter.Seq2[Node, error]) ([]Node, error) {
	var nodes []Node
	for node, err := range seq {
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
