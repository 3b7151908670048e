package dto

// AddPrerequisiteRequest adds an edge course -> prerequisite
type AddPrerequisiteRequest struct {
	PrerequisiteID int64 `json:"prerequisiteId" binding:"required,gt=0"`

	ActorID int64 `json:"-"`
}

// PrerequisiteEdgeResponse names both endpoints of a stored edge
type PrerequisiteEdgeResponse struct {
	Course       CourseRef `json:"course"`
	Prerequisite CourseRef `json:"prerequisite"`
}

// PrerequisiteCheckResponse is the outcome of checking a student against a
// course's immediate prerequisites
type PrerequisiteCheckResponse struct {
	StudentID  int64       `json:"studentId"`
	Course     CourseRef   `json:"course"`
	Met        bool        `json:"met"`
	Missing    []CourseRef `json:"missing"`
	Overridden []CourseRef `json:"overridden"`
}

// MissingCodes returns the codes of the missing prerequisites
func (r *PrerequisiteCheckResponse) MissingCodes() []string {
	codes := make([]string, 0, len(r.Missing))
	for _, c := range r.Missing {
		codes = append(codes, c.Code)
	}
	return codes
}

// ChainNodeResponse is one course of a prerequisite chain with its immediate
// prerequisites
type ChainNodeResponse struct {
	Course        CourseRef   `json:"course"`
	Depth         int         `json:"depth"`
	Prerequisites []CourseRef `json:"prerequisites"`
}

// PrerequisiteChainResponse is the transitive prerequisite closure of a course
type PrerequisiteChainResponse struct {
	Course CourseRef           `json:"course"`
	Nodes  []ChainNodeResponse `json:"nodes"`
}
