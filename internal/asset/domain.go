// internal/asset/domain.go
package asset

import (
	"strings"

	"github.com/google/uuid"

	"grccore/internal/domain"
)

const AggregateType = "asset"

// Lifecycle is the asset state machine: draft -> in_use -> archived.
type Lifecycle string

const (
	Draft    Lifecycle = "draft"
	InUse    Lifecycle = "in_use"
	Archived Lifecycle = "archived"
)

// Event type tags for the asset stream.
const (
	EventAssetCreated    = "AssetCreated"
	EventAssetClassified = "AssetClassified"
	EventAssetActivated  = "AssetActivated"
	EventAssetArchived   = "AssetArchived"
)

// CreatedPayload carries everything a projector needs to build the initial
// read-model row without refetching the aggregate.
type CreatedPayload struct {
	Name  string    `json:"name"`
	Owner string    `json:"owner"`
	State Lifecycle `json:"state"`
}

type ClassifiedPayload struct {
	Classification domain.Classification `json:"classification"`
}

type ActivatedPayload struct {
	State Lifecycle `json:"state"`
}

type ArchivedPayload struct {
	State Lifecycle `json:"state"`
}

// RegisterEvents adds the asset payload types to the registry. Called once
// at process start.
func RegisterEvents(r *domain.Registry) {
	r.Register(EventAssetCreated, func() any { return new(CreatedPayload) })
	r.Register(EventAssetClassified, func() any { return new(ClassifiedPayload) })
	r.Register(EventAssetActivated, func() any { return new(ActivatedPayload) })
	r.Register(EventAssetArchived, func() any { return new(ArchivedPayload) })
}

// Asset is a tracked service or system in the asset-and-service context.
type Asset struct {
	domain.Root
	Name           string                `json:"name"`
	Owner          string                `json:"owner"`
	Classification domain.Classification `json:"classification"`
	State          Lifecycle             `json:"state"`
}

func (a *Asset) AggregateType() string { return AggregateType }

// New creates a draft asset and raises AssetCreated.
func New(name, owner string) (*Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	a := &Asset{
		Root:  domain.Root{ID: uuid.New()},
		Name:  name,
		Owner: owner,
		State: Draft,
	}
	if err := a.Raise(EventAssetCreated, CreatedPayload{Name: name, Owner: owner, State: Draft}); err != nil {
		return nil, err
	}
	return a, nil
}

// Classify records CIA scores. Allowed while the asset is draft or in use;
// an archived asset's classification is frozen.
func (a *Asset) Classify(c domain.Classification) error {
	if err := domain.Guard("classify", string(a.State), string(Draft), string(InUse)); err != nil {
		return err
	}
	if err := a.Raise(EventAssetClassified, ClassifiedPayload{Classification: c}); err != nil {
		return err
	}
	a.Classification = c
	return nil
}

// Activate moves a draft asset into use.
func (a *Asset) Activate() error {
	if err := domain.Guard("activate", string(a.State), string(Draft)); err != nil {
		return err
	}
	if err := a.Raise(EventAssetActivated, ActivatedPayload{State: InUse}); err != nil {
		return err
	}
	a.State = InUse
	return nil
}

// Archive retires an asset that is in use.
func (a *Asset) Archive() error {
	if err := domain.Guard("archive", string(a.State), string(InUse)); err != nil {
		return err
	}
	if err := a.Raise(EventAssetArchived, ArchivedPayload{State: Archived}); err != nil {
		return err
	}
	a.State = Archived
	return nil
}
