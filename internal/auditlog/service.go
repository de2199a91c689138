package auditlog

import (
	"context"
	"fmt"
)

// RepositoryPort abstracts the read side for the service.
type RepositoryPort interface {
	Timeline(ctx context.Context, f TimelineFilters, limit, offset int) ([]Entry, error)
	RackUsage(ctx context.Context, batchID, equipmentTypeID int64) (int, error)
}

// PagingInfo describes the window returned by Timeline.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result bundles timeline rows with paging information.
type Result struct {
	Rows   []Entry    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}

// Service coordinates audit reads for reporting.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Timeline retrieves entries with paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("auditlog: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.Timeline(ctx, filters, pageSize+1, offset)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// RackUsage reconstructs how many racks a batch has consumed.
func (s *Service) RackUsage(ctx context.Context, batchID, equipmentTypeID int64) (int, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("auditlog: repository not configured")
	}
	return s.repo.RackUsage(ctx, batchID, equipmentTypeID)
}
