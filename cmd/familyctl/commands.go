package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"familydir/config"
	"familydir/internal/domain/service"
	"familydir/internal/infra/auth"
	"familydir/internal/infra/persistence"
	"familydir/internal/infra/persistence/postgres"
	"familydir/internal/infra/qrcode"
	"familydir/internal/infra/storage"
	"familydir/internal/usecase"
	"familydir/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func newTreeCmd() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the descendant tree of every root couple",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var family usecase.FamilyUsecase

			return runApp(cmd.Context(), func(ctx context.Context) error {
				roots, err := family.Tree(ctx, depth)
				if err != nil {
					return err
				}
				renderTree(cmd.OutOrStdout(), roots, 0)

				return nil
			},
				fx.Provide(
					persistence.NewStore,
					storage.New,
					impl.NewFamilyService,
				),
				fx.Populate(&family),
			)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "Generations to print below the roots (0 prints all)")

	return cmd
}

func renderTree(w io.Writer, nodes []*usecase.FamilyTreeNode, level int) {
	indent := strings.Repeat("  ", level)
	for _, n := range nodes {
		line := n.Member.Member.Name
		if n.Spouse != nil {
			line += " & " + n.Spouse.Member.Name
		}
		fmt.Fprintf(w, "%s%s (%s)\n", indent, line, n.Member.Member.ID)
		renderTree(w, n.Children, level+1)
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the PostgreSQL member schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var db *gorm.DB

			return runApp(cmd.Context(), func(ctx context.Context) error {
				if err := postgres.Migrate(db.WithContext(ctx)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema migrated")

				return nil
			},
				fx.Provide(postgres.New),
				fx.Populate(&db),
			)
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash to use as auth.adminPasswordHash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.NewBcryptHasher().Hash(args[0])
			if err != nil {
				return errors.Wrap(err, "failed to hash password")
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)

			return nil
		},
	}
}

func newQRCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "qr [member-id | profile-link]",
		Short: "Write the profile QR code of a member as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			codes := qrcode.NewQRCodeService(cfg.QRCode)

			id, err := memberIDArg(codes, args[0])
			if err != nil {
				return err
			}

			png, err := codes.GenerateProfileQR(id)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(png)

				return errors.Wrap(err, "failed to write QR code")
			}
			if err := os.WriteFile(output, png, 0o644); err != nil {
				return errors.Wrapf(err, "failed to write %s", output)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), codes.ProfileURL(id))

			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG file to write (stdout when empty)")

	return cmd
}

// memberIDArg accepts a bare member id or a scanned profile link.
func memberIDArg(codes service.QRCodeService, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}

	id, err := codes.ParseProfileURL(arg)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "%q is neither a member id nor a profile link", arg)
	}

	return id, nil
}
