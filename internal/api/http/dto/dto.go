package dto

import "github.com/google/uuid"

// CollectionResponse represents collection metadata
type CollectionResponse struct {
	ID             uuid.UUID `json:"id"`
	CollectionName string    `json:"collection_name"`
}

// CollectionListResponse represents the collection listing
type CollectionListResponse struct {
	Items []CollectionResponse `json:"items"`
	Total int                  `json:"total"`
}

// CompanyResponse represents a company with its liked status
type CompanyResponse struct {
	ID          int64  `json:"id"`
	CompanyName string `json:"company_name"`
	Liked       bool   `json:"liked"`
}

// CollectionDetailResponse represents one page of a collection's companies
type CollectionDetailResponse struct {
	ID             uuid.UUID         `json:"id"`
	CollectionName string            `json:"collection_name"`
	Companies      []CompanyResponse `json:"companies"`
	Total          int               `json:"total"`
}

// AddCompaniesRequest represents an add-to-collection request
type AddCompaniesRequest struct {
	CompanyIDs []int64 `json:"company_ids" binding:"required"`
}

// AddCompaniesResponse represents an add-to-collection result
type AddCompaniesResponse struct {
	Added int `json:"added"`
}

// MoveRequest represents a move launch request
type MoveRequest struct {
	CompanyIDs []int64 `json:"company_ids" binding:"required"`
}

// OperationResponse represents a launched operation
type OperationResponse struct {
	OperationID string `json:"operation_id"`
}

// ProgressResponse represents an operation's progress
type ProgressResponse struct {
	Progress float64 `json:"progress"`
	Status   string  `json:"status"`
}
