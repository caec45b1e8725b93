package settings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
)

func setupRedisRepo(t *testing.T) (*RedisRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepo(client, &logger.NoOpLogger{}), mr
}

// repos runs fn against every Repo implementation
func repos(t *testing.T, fn func(t *testing.T, repo Repo)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryRepo()) })
	t.Run("redis", func(t *testing.T) {
		repo, _ := setupRedisRepo(t)
		fn(t, repo)
	})
}

func TestRepo_GetMissing(t *testing.T) {
	repos(t, func(t *testing.T, repo Repo) {
		if _, err := repo.Get(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestRepo_SaveGet(t *testing.T) {
	repos(t, func(t *testing.T, repo Repo) {
		ctx := context.Background()
		s := Defaults("user-1")
		s.Enabled = true
		s.Prayer("isha").Enabled = true
		s.Prayer("isha").Start = "20:45"

		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		got, err := repo.Get(ctx, "user-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.Enabled {
			t.Error("Expected master switch on")
		}
		isha := got.Prayer("isha")
		if !isha.Enabled || isha.Start != "20:45" || isha.End != "21:00" {
			t.Errorf("Unexpected isha: %+v", isha)
		}
		if got.Prayer("fajr").Enabled {
			t.Error("fajr should be disabled")
		}

		// Stored copy is independent of the caller's value
		s.Enabled = false
		again, _ := repo.Get(ctx, "user-1")
		if !again.Enabled {
			t.Error("Caller mutation leaked into repo")
		}
	})
}

func TestRepo_UpdateCreatesFromDefaults(t *testing.T) {
	repos(t, func(t *testing.T, repo Repo) {
		ctx := context.Background()
		got, err := repo.Update(ctx, "fresh", Patch{
			Enabled: boolPtr(true),
			Prayers: map[string]PrayerPatch{"dhuhr": {Enabled: boolPtr(true)}},
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if !got.Enabled || !got.Prayer("dhuhr").Enabled || got.Prayer("dhuhr").Start != "12:30" {
			t.Errorf("Unexpected result: %+v", got)
		}

		stored, err := repo.Get(ctx, "fresh")
		if err != nil || !stored.Prayer("dhuhr").Enabled {
			t.Errorf("Update not persisted: %+v (%v)", stored, err)
		}
	})
}

func TestRepo_UpdateRejectsUnknownPrayer(t *testing.T) {
	repos(t, func(t *testing.T, repo Repo) {
		ctx := context.Background()
		_, err := repo.Update(ctx, "u", Patch{Prayers: map[string]PrayerPatch{"witr": {Enabled: boolPtr(true)}}})
		if !errors.Is(err, ErrUnknownPrayer) {
			t.Fatalf("Expected ErrUnknownPrayer, got %v", err)
		}
		if _, err := repo.Get(ctx, "u"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Rejected update must not create settings, got %v", err)
		}
	})
}

func TestRepo_List(t *testing.T) {
	repos(t, func(t *testing.T, repo Repo) {
		ctx := context.Background()
		for _, id := range []string{"b", "a", "c"} {
			if err := repo.Save(ctx, Defaults(id)); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}
		ids, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
			t.Errorf("Expected [a b c], got %v", ids)
		}
	})
}

func TestRepo_ConcurrentUpdates(t *testing.T) {
	repos(t, func(t *testing.T, repo Repo) {
		ctx := context.Background()
		var wg sync.WaitGroup
		errs := make(chan error, len(PrayerKeys))
		for _, key := range PrayerKeys {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				_, err := repo.Update(ctx, "u", Patch{Prayers: map[string]PrayerPatch{key: {Enabled: boolPtr(true)}}})
				if err != nil {
					errs <- err
				}
			}(key)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("Update failed: %v", err)
		}

		got, err := repo.Get(ctx, "u")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		for _, p := range got.Prayers {
			if !p.Enabled {
				t.Errorf("Lost update for %s", p.Key)
			}
		}
	})
}

func TestGetOrDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	s, err := GetOrDefaults(ctx, repo, "new")
	if err != nil || s.UserID != "new" || len(s.Prayers) != 5 {
		t.Errorf("Expected defaults, got %+v (%v)", s, err)
	}

	redisRepo, mr := setupRedisRepo(t)
	mr.Close()
	s, err = GetOrDefaults(ctx, redisRepo, "u")
	if err == nil {
		t.Error("Expected read error to be reported")
	}
	if s == nil || s.Enabled || len(s.Prayers) != 5 {
		t.Errorf("Expected fallback defaults, got %+v", s)
	}
}

func TestRedisRepo_HashLayout(t *testing.T) {
	repo, mr := setupRedisRepo(t)
	s := Defaults("user-9")
	s.Enabled = true
	if err := repo.Save(context.Background(), s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if got := mr.HGet("medict:settings:user-9", "enabled"); got != "true" {
		t.Errorf("Expected enabled=true in hash, got %q", got)
	}
	if got := mr.HGet("medict:settings:user-9", "maghrib_start"); got != "18:45" {
		t.Errorf("Expected maghrib_start 18:45, got %q", got)
	}
	if ok, _ := mr.SIsMember("medict:settings:users", "user-9"); !ok {
		t.Error("Expected user in index set")
	}
}
