package memory

import (
	"context"
	"testing"

	bankAuth "github.com/MrEthical07/bankAuth"
	"github.com/MrEthical07/bankAuth/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Repository { return New() })
}

func TestStoreReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := &bankAuth.User{Email: "copy@gmail.com", Roles: []bankAuth.Role{bankAuth.RoleCustomer}}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u.Roles[0] = bankAuth.RoleAdmin
	got, _ := s.FindByEmail(ctx, "copy@gmail.com")
	if got.Roles[0] != bankAuth.RoleCustomer {
		t.Fatal("store shares role slice with caller")
	}

	got.Locked = true
	again, _ := s.FindByEmail(ctx, "copy@gmail.com")
	if again.Locked {
		t.Fatal("store shares user with reader")
	}
}

func TestStoreHonorsCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.FindByEmail(ctx, "x@gmail.com"); err == nil {
		t.Fatal("expected context error")
	}
}
