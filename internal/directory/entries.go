package directory

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/entry"
	"github.com/sells-group/provider-directory/internal/geocoding"
	"github.com/sells-group/provider-directory/internal/metrics"
)

// AddEntry stores a submission as unapproved and ungeocoded and returns its
// id. Meta fields the type does not accept are dropped, the telephone is
// normalized and the entry is linked to its most similar existing entry
// when that one scores above the duplicate threshold. Geocoding runs in
// the background.
func (s *Service) AddEntry(ctx context.Context, e *entry.Entry) (string, error) {
	k, err := entry.ParseKind(e.Type)
	if err != nil {
		return "", eris.Wrap(ErrInvalidEntry, err.Error())
	}

	sub := e.Clone()
	sub.Meta = entry.Sanitize(k, sub.Meta)
	sub.Telephone = s.phone.Normalize(sub.Telephone)
	sub.Approved = false
	sub.Blocked = false
	sub.ApprovedBy = nil
	sub.ApprovedTimestamp = nil
	sub.PossibleDuplicate = nil
	sub.Location = nil
	sub.Distance = nil

	id, err := uuid.NewV7()
	if err != nil {
		return "", eris.Wrap(err, "directory: generate id")
	}
	sub.ID = ""
	if dup, ok := s.scorer.FindPossibleDuplicate(ctx, sub, s.scorer.Threshold()); ok {
		sub.PossibleDuplicate = &dup
	}
	sub.ID = id.String()
	sub.SubmittedTimestamp = s.now()

	if err := s.backend.InsertEntry(ctx, sub); err != nil {
		return "", eris.Wrap(err, "directory: add entry")
	}
	s.touch(ctx)
	s.enqueue(sub)

	metrics.EntriesSubmitted.WithLabelValues(sub.Type).Inc()
	zap.L().Info("directory: entry submitted",
		zap.String("entry_id", sub.ID),
		zap.String("type", sub.Type),
		zap.Bool("possible_duplicate", sub.PossibleDuplicate != nil),
	)
	return sub.ID, nil
}

// FindPossibleDuplicate returns the id of the existing entry most similar
// to e when its score exceeds threshold.
func (s *Service) FindPossibleDuplicate(ctx context.Context, e *entry.Entry, threshold float64) (string, bool) {
	return s.scorer.FindPossibleDuplicate(ctx, e, threshold)
}

// GetEntry returns the public view of a non-blocked entry.
func (s *Service) GetEntry(ctx context.Context, id string) (*entry.Entry, error) {
	e, err := s.backend.GetEntry(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "directory: get entry %s", id)
	}
	if e.Blocked {
		return nil, eris.Wrapf(ErrNotFound, "directory: entry %s is blocked", id)
	}
	return entry.Public(e), nil
}

// Approve sets or revokes approval of id by moderatorID. Approval clears
// the possible-duplicate link.
func (s *Service) Approve(ctx context.Context, id, moderatorID string, approve bool) error {
	return s.modify(ctx, id, "approve", func(e *entry.Entry) {
		e.Approved = approve
		if approve {
			by, at := moderatorID, s.now()
			e.ApprovedBy = &by
			e.ApprovedTimestamp = &at
			e.PossibleDuplicate = nil
			return
		}
		e.ApprovedBy = nil
		e.ApprovedTimestamp = nil
	})
}

// Block hides or restores an entry in every listing.
func (s *Service) Block(ctx context.Context, id string, blocked bool) error {
	return s.modify(ctx, id, "block", func(e *entry.Entry) {
		e.Blocked = blocked
	})
}

// Update replaces the editable fields of id with those of edit. Moderation
// state is kept. A changed address queues the entry for geocoding.
func (s *Service) Update(ctx context.Context, id string, edit *entry.Entry) error {
	k, err := entry.ParseKind(edit.Type)
	if err != nil {
		return eris.Wrap(ErrInvalidEntry, err.Error())
	}

	var moved bool
	err = s.modify(ctx, id, "update", func(e *entry.Entry) {
		moved = !entry.AddressEqual(e.Address, edit.Address)

		e.Type = edit.Type
		e.Name = edit.Name
		e.AcademicTitle = edit.AcademicTitle
		e.FirstName = edit.FirstName
		e.LastName = edit.LastName
		e.Email = edit.Email
		e.Website = edit.Website
		e.Telephone = s.phone.Normalize(edit.Telephone)
		e.Accessible = edit.Accessible
		e.Address = edit.Address
		e.Meta = entry.Sanitize(k, edit.Meta)
	})
	if err != nil {
		return err
	}

	if moved {
		s.enqueue(&entry.Entry{ID: id, Address: edit.Address})
	}
	return nil
}

// Delete removes an entry for good.
func (s *Service) Delete(ctx context.Context, id string) error {
	ok, err := s.backend.DeleteEntry(ctx, id)
	if err != nil {
		return eris.Wrapf(err, "directory: delete entry %s", id)
	}
	if !ok {
		return eris.Wrapf(ErrNotFound, "directory: delete entry %s", id)
	}
	s.touch(ctx)
	zap.L().Info("directory: entry deleted", zap.String("entry_id", id))
	return nil
}

// UpdateGeo queues id for geocoding again. It returns ErrNotUpdated when
// the queue is full or no geocoder is running.
func (s *Service) UpdateGeo(ctx context.Context, id string) error {
	e, err := s.backend.GetEntry(ctx, id)
	if err != nil {
		return eris.Wrapf(err, "directory: update geo %s", id)
	}
	if !s.enqueue(e) {
		return eris.Wrapf(ErrNotUpdated, "directory: geocoding of %s not queued", id)
	}
	return nil
}

// modify loads id, applies change and writes the entry back.
func (s *Service) modify(ctx context.Context, id, action string, change func(*entry.Entry)) error {
	e, err := s.backend.GetEntry(ctx, id)
	if err != nil {
		return eris.Wrapf(err, "directory: %s entry %s", action, id)
	}

	change(e)

	if err := s.backend.UpdateEntry(ctx, e); err != nil {
		if eris.Is(err, ErrNotFound) {
			return eris.Wrapf(err, "directory: %s entry %s", action, id)
		}
		return eris.Wrapf(ErrNotUpdated, "directory: %s entry %s: %v", action, id, err)
	}
	s.touch(ctx)

	zap.L().Info("directory: entry modified", zap.String("entry_id", id), zap.String("action", action))
	return nil
}

func (s *Service) enqueue(e *entry.Entry) bool {
	if s.geocoder == nil {
		return false
	}
	return s.geocoder.Enqueue(geocoding.NewJob(e.ID, e.Address))
}

// touch records a collection change; failures are logged only.
func (s *Service) touch(ctx context.Context) {
	if err := s.backend.TouchChange(ctx, s.now()); err != nil {
		zap.L().Warn("directory: touch collection meta", zap.Error(err))
	}
}
