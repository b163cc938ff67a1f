package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"cronplane/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func TestGetActorByAPIKeyHash_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	hash := "abc123"

	mock.ExpectQuery(`SELECT id, name, created_at FROM actors WHERE api_key_hash`).
		WithArgs(hash).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).
			AddRow(id, "deploy-bot", time.Now()))

	actor, err := s.GetActorByAPIKeyHash(context.Background(), hash)
	if err != nil {
		t.Fatalf("GetActorByAPIKeyHash failed: %v", err)
	}
	if actor.ID != id || actor.Name != "deploy-bot" {
		t.Errorf("got actor %+v", actor)
	}
}

func TestGetActorByAPIKeyHash_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT id, name, created_at FROM actors`).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}))

	_, err := s.GetActorByAPIKeyHash(context.Background(), "unknown")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGetOrg_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT id, name, max_active_jobs, created_at FROM orgs`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "max_active_jobs", "created_at"}).
			AddRow(id, "acme", 20, time.Now()))

	org, err := s.GetOrg(context.Background(), id)
	if err != nil {
		t.Fatalf("GetOrg failed: %v", err)
	}
	if org.MaxActiveJobs != 20 {
		t.Errorf("got max_active_jobs %d, want 20", org.MaxActiveJobs)
	}
}

func TestSetRole_Upsert(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	actorID := uuid.New()
	orgID := uuid.New()

	mock.ExpectExec(`INSERT INTO memberships .* ON CONFLICT \(actor_id, org_id\) DO UPDATE`).
		WithArgs(actorID, orgID, string(store.RoleAdmin), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.SetRole(context.Background(), actorID, orgID, store.RoleAdmin); err != nil {
		t.Fatalf("SetRole failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetRole(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	actorID := uuid.New()
	orgID := uuid.New()

	t.Run("member", func(t *testing.T) {
		mock.ExpectQuery(`SELECT role FROM memberships`).
			WithArgs(actorID, orgID).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(string(store.RoleOperator)))

		role, err := s.GetRole(context.Background(), actorID, orgID)
		if err != nil {
			t.Fatalf("GetRole failed: %v", err)
		}
		if role != store.RoleOperator {
			t.Errorf("got role %s, want operator", role)
		}
	})

	t.Run("not a member", func(t *testing.T) {
		mock.ExpectQuery(`SELECT role FROM memberships`).
			WithArgs(actorID, orgID).
			WillReturnRows(sqlmock.NewRows([]string{"role"}))

		_, err := s.GetRole(context.Background(), actorID, orgID)
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})
}
