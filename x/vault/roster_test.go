package vault

import (
	"testing"

	"github.com/covault/covault"
	"github.com/covault/covault/errors"
	"github.com/covault/covault/vaulttest"
	"github.com/covault/covault/vaulttest/assert"
)

func TestRosterValidate(t *testing.T) {
	alice := vaulttest.NamedAddress("alice")
	bob := vaulttest.NamedAddress("bob")
	carl := vaulttest.NamedAddress("carl")

	cases := map[string]struct {
		roster  Roster
		wantErr *errors.Error
	}{
		"two of three": {
			roster: NewRoster(2, alice, bob, carl),
		},
		"single owner": {
			roster: NewRoster(1, alice),
		},
		"unanimous": {
			roster: NewRoster(3, alice, bob, carl),
		},
		"no owners": {
			roster:  NewRoster(1),
			wantErr: ErrInvalidConfig,
		},
		"zero identity owner": {
			roster:  NewRoster(1, alice, make(covault.Address, covault.AddressLength)),
			wantErr: ErrInvalidConfig,
		},
		"malformed owner": {
			roster:  NewRoster(1, alice, covault.Address{1, 2, 3}),
			wantErr: ErrInvalidConfig,
		},
		"duplicate owner": {
			roster:  NewRoster(1, alice, bob, alice),
			wantErr: ErrInvalidConfig,
		},
		"zero threshold": {
			roster:  NewRoster(0, alice, bob),
			wantErr: ErrInvalidConfig,
		},
		"threshold above owner count": {
			roster:  NewRoster(3, alice, bob),
			wantErr: ErrInvalidConfig,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if err := tc.roster.Validate(); !tc.wantErr.Is(err) {
				t.Fatalf("want %v, got %+v", tc.wantErr, err)
			}
		})
	}
}

func TestRosterIsOwner(t *testing.T) {
	alice := vaulttest.NamedAddress("alice")
	bob := vaulttest.NamedAddress("bob")
	outsider := vaulttest.NamedAddress("outsider")

	r := NewRoster(2, alice, bob)
	if !r.IsOwner(alice) {
		t.Fatal("alice must be an owner")
	}
	if !r.IsOwner(bob.Clone()) {
		t.Fatal("equality must be by value, not identity")
	}
	if r.IsOwner(outsider) {
		t.Fatal("outsider must not be an owner")
	}
	if r.IsOwner(nil) {
		t.Fatal("nil must not be an owner")
	}
}

func TestRosterAddress(t *testing.T) {
	alice := vaulttest.NamedAddress("alice")
	bob := vaulttest.NamedAddress("bob")

	a := NewRoster(2, alice, bob).Address()
	assert.Nil(t, a.Validate())

	// same roster, same address
	b := NewRoster(2, alice, bob).Address()
	assert.Equal(t, a, b)

	// threshold is part of the identity
	c := NewRoster(1, alice, bob).Address()
	if a.Equals(c) {
		t.Fatal("different threshold must give a different address")
	}

	// so is owner order
	d := NewRoster(2, bob, alice).Address()
	if a.Equals(d) {
		t.Fatal("different owner order must give a different address")
	}
}

func TestRosterCopyIsDeep(t *testing.T) {
	alice := vaulttest.NamedAddress("alice")
	r := NewRoster(1, alice)

	cpy := r.Copy()
	cpy.Owners[0][0] ^= 0xff
	if !r.Owners[0].Equals(alice) {
		t.Fatal("mutating the copy leaked into the original")
	}
}
