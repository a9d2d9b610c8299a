package store

import (
	"context"
	"testing"

	"github.com/playblyza/blyza/internal/model"
)

func setupFriends(t *testing.T) (*FriendStore, *AccountStore) {
	t.Helper()
	db := setupTestDB(t)
	fs := NewFriendStore(db)
	as := NewAccountStore(db, testLogger())

	ctx := context.Background()
	for _, id := range []string{"u1", "u2", "u3"} {
		if err := as.EnsureAccount(ctx, id); err != nil {
			t.Fatalf("ensure account %s: %v", id, err)
		}
	}
	return fs, as
}

func TestSendFriendRequest(t *testing.T) {
	fs, _ := setupFriends(t)
	ctx := context.Background()

	sent, err := fs.SendRequest(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if !sent {
		t.Fatal("expected request to be sent")
	}

	pending, err := fs.PendingRequests(ctx, "u2")
	if err != nil {
		t.Fatalf("pending requests: %v", err)
	}
	if len(pending) != 1 || pending[0].FriendID != "u1" {
		t.Fatalf("pending = %v, want one request from u1", pending)
	}
}

func TestSendFriendRequestDuplicate(t *testing.T) {
	fs, _ := setupFriends(t)
	ctx := context.Background()

	if _, err := fs.SendRequest(ctx, "u1", "u2"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	// Same direction and reverse direction both refuse.
	sent, err := fs.SendRequest(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("duplicate request: %v", err)
	}
	if sent {
		t.Error("duplicate request should not be sent")
	}
	sent, err = fs.SendRequest(ctx, "u2", "u1")
	if err != nil {
		t.Fatalf("reverse request: %v", err)
	}
	if sent {
		t.Error("reverse request should not be sent while one is pending")
	}
}

func TestSendFriendRequestToSelf(t *testing.T) {
	fs, _ := setupFriends(t)

	if _, err := fs.SendRequest(context.Background(), "u1", "u1"); err != ErrSelfFriend {
		t.Errorf("err = %v, want ErrSelfFriend", err)
	}
}

func TestAcceptFriendRequest(t *testing.T) {
	fs, _ := setupFriends(t)
	ctx := context.Background()

	if _, err := fs.SendRequest(ctx, "u1", "u2"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	ok, err := fs.AcceptRequest(ctx, "u2", "u1")
	if err != nil {
		t.Fatalf("accept request: %v", err)
	}
	if !ok {
		t.Fatal("expected accept to succeed")
	}

	// Both sides now list each other as accepted friends.
	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		friends, err := fs.List(ctx, pair[0], model.FriendStatusAccepted)
		if err != nil {
			t.Fatalf("list friends for %s: %v", pair[0], err)
		}
		if len(friends) != 1 || friends[0].FriendID != pair[1] {
			t.Errorf("friends of %s = %v, want [%s]", pair[0], friends, pair[1])
		}
		if friends[0].Profile == nil || friends[0].Profile.ID != pair[1] {
			t.Errorf("friend profile missing for %s", pair[0])
		}
	}
}

func TestAcceptWithoutPending(t *testing.T) {
	fs, _ := setupFriends(t)

	ok, err := fs.AcceptRequest(context.Background(), "u2", "u1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if ok {
		t.Error("accept should fail with no pending request")
	}
}

func TestRejectFriendRequest(t *testing.T) {
	fs, _ := setupFriends(t)
	ctx := context.Background()

	if _, err := fs.SendRequest(ctx, "u1", "u2"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	ok, err := fs.RejectRequest(ctx, "u2", "u1")
	if err != nil {
		t.Fatalf("reject request: %v", err)
	}
	if !ok {
		t.Fatal("expected reject to succeed")
	}

	status, err := fs.Status(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != nil {
		t.Errorf("status = %v, want nil after reject", status)
	}
}

func TestRemoveFriend(t *testing.T) {
	fs, _ := setupFriends(t)
	ctx := context.Background()

	if _, err := fs.SendRequest(ctx, "u1", "u2"); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if _, err := fs.AcceptRequest(ctx, "u2", "u1"); err != nil {
		t.Fatalf("accept request: %v", err)
	}

	if err := fs.Remove(ctx, "u1", "u2"); err != nil {
		t.Fatalf("remove friend: %v", err)
	}

	for _, id := range []string{"u1", "u2"} {
		friends, err := fs.List(ctx, id, model.FriendStatusAccepted)
		if err != nil {
			t.Fatalf("list friends: %v", err)
		}
		if len(friends) != 0 {
			t.Errorf("friends of %s = %v, want empty", id, friends)
		}
	}
}

func TestFriendStatusBothDirections(t *testing.T) {
	fs, _ := setupFriends(t)
	ctx := context.Background()

	if _, err := fs.SendRequest(ctx, "u1", "u2"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		status, err := fs.Status(ctx, pair[0], pair[1])
		if err != nil {
			t.Fatalf("status %v: %v", pair, err)
		}
		if status == nil || status.Status != model.FriendStatusPending {
			t.Errorf("status %v = %v, want pending", pair, status)
		}
	}
}
