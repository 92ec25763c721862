package main

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bjaus/rest"
	"github.com/bjaus/rest/convention"
)

// Pet is the resource served by the example.
type Pet struct {
	ID      uuid.UUID  `json:"id" required:"true"`
	Name    string     `json:"name" required:"true" doc:"Name of the pet"`
	Kind    string     `json:"kind" enum:"cat,dog,bird"`
	OwnerID *uuid.UUID `json:"owner_id,omitempty"`
}

// Owner owns pets.
type Owner struct {
	ID   uuid.UUID `json:"id" required:"true"`
	Name string    `json:"name" required:"true"`
}

type NewPet struct {
	Name    string     `json:"name" required:"true" minLength:"1" maxLength:"64"`
	Kind    string     `json:"kind" enum:"cat,dog,bird"`
	OwnerID *uuid.UUID `json:"owner_id,omitempty"`
}

type NewOwner struct {
	Name string `json:"name" required:"true" minLength:"1"`
}

type SearchPets struct {
	rest.Page
	Kind string `query:"kind" enum:"cat,dog,bird" doc:"Only pets of this kind"`
}

type PetID struct {
	ID uuid.UUID `path:"pet_id"`
}

type UpdatePet struct {
	ID   uuid.UUID `path:"pet_id"`
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"64"`
	}
}

type OwnerPets struct {
	rest.Page
	OwnerID uuid.UUID `path:"owner_id"`
}

// store keeps pets and owners in memory.
type store struct {
	mu     sync.RWMutex
	pets   map[uuid.UUID]Pet
	owners map[uuid.UUID]Owner
}

func newStore() *store {
	return &store{
		pets:   make(map[uuid.UUID]Pet),
		owners: make(map[uuid.UUID]Owner),
	}
}

func (s *store) find(match func(Pet) bool, page rest.Page) ([]Pet, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []Pet
	for _, p := range s.pets {
		if match(p) {
			all = append(all, p)
		}
	}
	slices.SortFunc(all, func(a, b Pet) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID.String(), b.ID.String()))
	})

	start := min(page.Offset, len(all))
	end := min(start+page.Limit, len(all))
	return all[start:end], len(all)
}

func registerPets(r *rest.Router, s *store) {
	pets := &rest.Namespace{Subject: "pet", Version: "v1", Controller: "pets"}
	owners := &rest.Namespace{Subject: "owner", Version: "v1", Controller: "pets"}
	ownerPets := &rest.Namespace{Subject: "owner", Object: "pet", Version: "v1", Controller: "pets"}

	convention.Search(r, pets, func(_ context.Context, q *SearchPets) ([]Pet, int, error) {
		items, count := s.find(func(p Pet) bool { return q.Kind == "" || p.Kind == q.Kind }, q.Page)
		return items, count, nil
	}, rest.WithSummary("Search pets"))

	convention.Create(r, pets, func(ctx context.Context, req *NewPet) (*Pet, error) {
		pet := Pet{ID: uuid.New(), Name: req.Name, Kind: req.Kind, OwnerID: req.OwnerID}

		s.mu.Lock()
		defer s.mu.Unlock()
		if pet.OwnerID != nil {
			if _, ok := s.owners[*pet.OwnerID]; !ok {
				return nil, rest.Errorf(http.StatusUnprocessableEntity, "owner %s does not exist", pet.OwnerID)
			}
		}
		s.pets[pet.ID] = pet

		rest.Log(ctx).Info("pet created", "pet_id", pet.ID)
		return &pet, nil
	}, rest.WithSummary("Create a pet"))

	convention.Retrieve(r, pets, func(_ context.Context, req *PetID) (*Pet, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		pet, ok := s.pets[req.ID]
		if !ok {
			return nil, rest.Errorf(http.StatusNotFound, "pet %s not found", req.ID)
		}
		return &pet, nil
	})

	convention.Update(r, pets, func(_ context.Context, req *UpdatePet) (*Pet, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		pet, ok := s.pets[req.ID]
		if !ok {
			return nil, rest.Errorf(http.StatusNotFound, "pet %s not found", req.ID)
		}
		if req.Body.Name != "" {
			pet.Name = req.Body.Name
		}
		s.pets[pet.ID] = pet
		return &pet, nil
	})

	convention.Delete(r, pets, func(_ context.Context, req *PetID) (*rest.Void, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, ok := s.pets[req.ID]; !ok {
			return nil, rest.Errorf(http.StatusNotFound, "pet %s not found", req.ID)
		}
		delete(s.pets, req.ID)
		return &rest.Void{}, nil
	})

	convention.Create(r, owners, func(_ context.Context, req *NewOwner) (*Owner, error) {
		owner := Owner{ID: uuid.New(), Name: req.Name}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.owners[owner.ID] = owner
		return &owner, nil
	})

	convention.SearchFor(r, ownerPets, func(_ context.Context, q *OwnerPets) ([]Pet, int, error) {
		s.mu.RLock()
		_, ok := s.owners[q.OwnerID]
		s.mu.RUnlock()
		if !ok {
			return nil, 0, rest.Errorf(http.StatusNotFound, "owner %s not found", q.OwnerID)
		}

		items, count := s.find(func(p Pet) bool { return p.OwnerID != nil && *p.OwnerID == q.OwnerID }, q.Page)
		return items, count, nil
	})
}
