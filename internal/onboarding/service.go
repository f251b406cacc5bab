package onboarding

import (
	"errors"

	"property-manager/internal/common"
	"property-manager/internal/models"
	"property-manager/internal/storage/jsonfile"
	"property-manager/internal/store"
)

// View is the onboarding state of one tenant or organisation
type View struct {
	SubjectID   string                  `json:"subjectId"`
	Kind        models.SubjectKind      `json:"kind"`
	Name        string                  `json:"name"`
	Status      models.OnboardingStatus `json:"status"`
	Checkpoints models.Checkpoints      `json:"checkpoints"`
	Progress    Progress                `json:"progress"`
}

// Change records a status change made by the service
type Change struct {
	SubjectID string
	Kind      models.SubjectKind
	From      models.OnboardingStatus
	To        models.OnboardingStatus
}

// Service reads and writes onboarding state. The status is stored on the
// tenant or org record; the flags live in the checkpoints collection.
type Service struct {
	store *store.Store
}

// NewService creates an onboarding service over the store
func NewService(s *store.Store) *Service {
	return &Service{store: s}
}

// Get returns the onboarding view of one subject
func (s *Service) Get(kind models.SubjectKind, id string) (View, error) {
	name, status, err := s.subject(kind, id)
	if err != nil {
		return View{}, err
	}
	cp, err := s.checkpoints(kind, id)
	if err != nil {
		return View{}, err
	}
	return s.view(kind, id, name, status, cp)
}

// List returns the views of every subject of kind, or of both kinds when kind is empty
func (s *Service) List(kind models.SubjectKind) ([]View, error) {
	if kind != "" && kind != models.KindResidential && kind != models.KindCommercial {
		return nil, common.ErrInvalidInputf("unknown onboarding kind %q", kind)
	}

	all, err := s.store.Checkpoints.List()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Checkpoints, len(all))
	for _, cp := range all {
		byID[cp.ID] = cp.Checkpoints
	}

	views := []View{}
	if kind == "" || kind == models.KindResidential {
		tenants, err := s.store.Tenants.List()
		if err != nil {
			return nil, err
		}
		for i := range tenants {
			v, err := s.view(models.KindResidential, tenants[i].ID, tenants[i].FullName(), tenants[i].OnboardingStatus, byID[tenants[i].ID])
			if err != nil {
				return nil, err
			}
			views = append(views, v)
		}
	}
	if kind == "" || kind == models.KindCommercial {
		orgs, err := s.store.Orgs.List()
		if err != nil {
			return nil, err
		}
		for _, o := range orgs {
			v, err := s.view(models.KindCommercial, o.ID, o.Name, o.OnboardingStatus, byID[o.ID])
			if err != nil {
				return nil, err
			}
			views = append(views, v)
		}
	}
	return views, nil
}

// UpdateCheckpoints stores new flags and re-derives the subject's status
func (s *Service) UpdateCheckpoints(kind models.SubjectKind, id string, flags models.Checkpoints) (View, *Change, error) {
	_, current, err := s.subject(kind, id)
	if err != nil {
		return View{}, nil, err
	}

	next, err := NextStatus(current, kind, flags)
	if err != nil {
		return View{}, nil, err
	}
	if _, err := s.store.Checkpoints.Upsert(models.OnboardingCheckpoint{ID: id, SubjectKind: kind, Checkpoints: flags}); err != nil {
		return View{}, nil, err
	}

	change, err := s.setStatus(kind, id, current, next)
	if err != nil {
		return View{}, nil, err
	}
	view, err := s.Get(kind, id)
	return view, change, err
}

// SetStatus applies a manual status change such as putting an onboarding on hold
func (s *Service) SetStatus(kind models.SubjectKind, id string, target models.OnboardingStatus) (View, *Change, error) {
	_, current, err := s.subject(kind, id)
	if err != nil {
		return View{}, nil, err
	}
	cp, err := s.checkpoints(kind, id)
	if err != nil {
		return View{}, nil, err
	}

	next, err := Transition(current, target, kind, cp)
	if err != nil {
		return View{}, nil, err
	}
	change, err := s.setStatus(kind, id, current, next)
	if err != nil {
		return View{}, nil, err
	}
	view, err := s.Get(kind, id)
	return view, change, err
}

// Recompute re-derives the status of every subject and returns the changes made
func (s *Service) Recompute() ([]Change, error) {
	views, err := s.List("")
	if err != nil {
		return nil, err
	}
	changes := []Change{}
	for _, v := range views {
		next, err := NextStatus(v.Status, v.Kind, v.Checkpoints)
		if err != nil {
			return nil, err
		}
		change, err := s.setStatus(v.Kind, v.SubjectID, v.Status, next)
		if err != nil {
			return nil, err
		}
		if change != nil {
			changes = append(changes, *change)
		}
	}
	return changes, nil
}

// Forget removes the checkpoints of a deleted subject
func (s *Service) Forget(id string) error {
	err := s.store.Checkpoints.Delete(id)
	if errors.Is(err, jsonfile.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) view(kind models.SubjectKind, id, name string, status models.OnboardingStatus, cp models.Checkpoints) (View, error) {
	p, err := ComputeProgress(kind, cp)
	if err != nil {
		return View{}, err
	}
	if status == "" {
		status = models.StatusNotStarted
	}
	return View{
		SubjectID:   id,
		Kind:        kind,
		Name:        name,
		Status:      status,
		Checkpoints: cp,
		Progress:    p,
	}, nil
}

func (s *Service) subject(kind models.SubjectKind, id string) (string, models.OnboardingStatus, error) {
	switch kind {
	case models.KindResidential:
		t, err := s.store.Tenants.Get(id)
		if err != nil {
			return "", "", err
		}
		return t.FullName(), orDefault(t.OnboardingStatus), nil
	case models.KindCommercial:
		o, err := s.store.Orgs.Get(id)
		if err != nil {
			return "", "", err
		}
		return o.Name, orDefault(o.OnboardingStatus), nil
	}
	return "", "", common.ErrInvalidInputf("unknown onboarding kind %q", kind)
}

func (s *Service) checkpoints(kind models.SubjectKind, id string) (models.Checkpoints, error) {
	cp, err := s.store.Checkpoints.Get(id)
	if err != nil {
		if errors.Is(err, jsonfile.ErrNotFound) {
			return models.Checkpoints{}, nil
		}
		return models.Checkpoints{}, err
	}
	if cp.SubjectKind != kind {
		return models.Checkpoints{}, common.ErrInvalidInputf("checkpoints %q belong to a %s subject", id, cp.SubjectKind)
	}
	return cp.Checkpoints, nil
}

func (s *Service) setStatus(kind models.SubjectKind, id string, from, to models.OnboardingStatus) (*Change, error) {
	if from == to {
		return nil, nil
	}
	var err error
	switch kind {
	case models.KindResidential:
		_, err = s.store.Tenants.Update(id, func(t *models.Tenant) error {
			t.OnboardingStatus = to
			return nil
		})
	case models.KindCommercial:
		_, err = s.store.Orgs.Update(id, func(o *models.TenantOrg) error {
			o.OnboardingStatus = to
			return nil
		})
	}
	if err != nil {
		return nil, err
	}
	return &Change{SubjectID: id, Kind: kind, From: from, To: to}, nil
}

func orDefault(s models.OnboardingStatus) models.OnboardingStatus {
	if s == "" {
		return models.StatusNotStarted
	}
	return s
}
