package services

import (
	"context"

	"schoolRecords/auth"
	"schoolRecords/database"
	"schoolRecords/shared"
)

var roleDescriptions = map[auth.Role]string{
	auth.RoleAdmin:    "Full access to the records",
	auth.RoleDirector: "School management",
	auth.RoleTeacher:  "Evaluates students of assigned groups",
	auth.RoleParent:   "Reads the records of their children",
	auth.RoleObserver: "Read-only access",
}

// Seed creates the default roles with their permissions and, when
// adminEmail is set, an administrator account. The administrator needs a
// password that RegisterUser would accept. Running it again changes
// nothing.
func (s *Service) Seed(ctx context.Context, adminEmail, adminPassword string) error {
	var hash string
	if adminEmail != "" {
		if err := checkPassword("Seed", adminPassword); err != nil {
			return err
		}
		var err error
		if hash, err = s.hasher.Hash(adminPassword); err != nil {
			return shared.WrapError("user", "Seed", shared.ErrStorage, "could not store the password", err)
		}
	}

	return s.store.Do(ctx, func(ctx context.Context, uow *database.UnitOfWork) error {
		for _, r := range auth.Roles {
			role, err := uow.Roles.GetByName(ctx, string(r))
			if err != nil {
				return err
			}
			if role == nil {
				if role, err = uow.Roles.Create(ctx, &database.Role{Name: string(r), Description: roleDescriptions[r]}); err != nil {
					return err
				}
				s.logger.Infof("seeded role %s", r)
			}

			for _, code := range auth.DefaultPermissions[r] {
				perm, err := uow.Permissions.GetByCode(ctx, code)
				if err != nil {
					return err
				}
				if perm == nil {
					if perm, err = uow.Permissions.Create(ctx, &database.Permission{Code: code}); err != nil {
						return err
					}
				}
				if err := uow.Roles.GrantPermission(ctx, role.ID, perm.ID); err != nil {
					return err
				}
			}
		}

		if adminEmail == "" {
			return nil
		}
		existing, err := uow.Users.GetByEmail(ctx, adminEmail)
		if err != nil || existing != nil {
			return err
		}
		admin, err := s.registerUser(ctx, uow, RegisterUserInput{
			FirstName: "Administrador",
			LastName:  "General",
			Email:     adminEmail,
		}, database.KindAdmin, hash)
		if err != nil {
			return err
		}
		s.logger.Infof("seeded administrator %s", admin.Email)
		return nil
	})
}
