package events

import (
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"tip20kit/core/roles"
	"tip20kit/core/tip20"
)

const (
	// TypeRoleMembership is emitted when an account gains or loses a role.
	TypeRoleMembership = "tip20.role_membership"
	// TypeRoleAdmin is emitted when a role's admin role changes.
	TypeRoleAdmin = "tip20.role_admin"

	RoleGranted = "granted"
	RoleRevoked = "revoked"
)

type RoleMembershipUpdated struct {
	Role    roles.Role
	Account common.Address
	Sender  common.Address
	HasRole bool
}

func (RoleMembershipUpdated) EventType() string { return TypeRoleMembership }

// Kind reports whether the update granted or revoked the role.
func (e RoleMembershipUpdated) Kind() string {
	if e.HasRole {
		return RoleGranted
	}
	return RoleRevoked
}

func (e RoleMembershipUpdated) Attributes() map[string]string {
	return map[string]string{
		"role":    e.Role.String(),
		"account": formatAddress(e.Account),
		"sender":  formatAddress(e.Sender),
		"hasRole": formatBool(e.HasRole),
		"type":    e.Kind(),
	}
}

// DecodeRoleMembershipUpdated decodes a RoleMembershipUpdated log.
func DecodeRoleMembershipUpdated(log gethtypes.Log) (RoleMembershipUpdated, error) {
	fields, err := unpack(tip20.Token, tip20.EventRoleMembership, log)
	if err != nil {
		return RoleMembershipUpdated{}, err
	}
	var e RoleMembershipUpdated
	id, err := field[[32]byte](fields, tip20.EventRoleMembership, "role")
	if err != nil {
		return RoleMembershipUpdated{}, err
	}
	e.Role = roles.Deserialize(id)
	if e.Account, err = field[common.Address](fields, tip20.EventRoleMembership, "account"); err != nil {
		return RoleMembershipUpdated{}, err
	}
	if e.Sender, err = field[common.Address](fields, tip20.EventRoleMembership, "sender"); err != nil {
		return RoleMembershipUpdated{}, err
	}
	if e.HasRole, err = field[bool](fields, tip20.EventRoleMembership, "hasRole"); err != nil {
		return RoleMembershipUpdated{}, err
	}
	return e, nil
}

type RoleAdminUpdated struct {
	Role         roles.Role
	NewAdminRole roles.Role
	Sender       common.Address
}

func (RoleAdminUpdated) EventType() string { return TypeRoleAdmin }

func (e RoleAdminUpdated) Attributes() map[string]string {
	return map[string]string{
		"role":         e.Role.String(),
		"newAdminRole": e.NewAdminRole.String(),
		"sender":       formatAddress(e.Sender),
	}
}

// DecodeRoleAdminUpdated decodes a RoleAdminUpdated log.
func DecodeRoleAdminUpdated(log gethtypes.Log) (RoleAdminUpdated, error) {
	fields, err := unpack(tip20.Token, tip20.EventRoleAdminUpdated, log)
	if err != nil {
		return RoleAdminUpdated{}, err
	}
	role, err := field[[32]byte](fields, tip20.EventRoleAdminUpdated, "role")
	if err != nil {
		return RoleAdminUpdated{}, err
	}
	admin, err := field[[32]byte](fields, tip20.EventRoleAdminUpdated, "newAdminRole")
	if err != nil {
		return RoleAdminUpdated{}, err
	}
	sender, err := field[common.Address](fields, tip20.EventRoleAdminUpdated, "sender")
	if err != nil {
		return RoleAdminUpdated{}, err
	}
	return RoleAdminUpdated{
		Role:         roles.Deserialize(role),
		NewAdminRole: roles.Deserialize(admin),
		Sender:       sender,
	}, nil
}
