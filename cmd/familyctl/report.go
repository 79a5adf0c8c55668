package main

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"os"
	"time"

	"familydir/config"
	"familydir/internal/domain/service"
	"familydir/internal/infra/maps"
	"familydir/internal/infra/persistence"
	"familydir/internal/infra/qrcode"
	"familydir/internal/infra/storage"
	"familydir/internal/usecase"
	"familydir/internal/usecase/impl"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const (
	reportFormatHTML = "html"
	reportFormatJSON = "json"
	reportDOBLayout  = "02/01/2006"
)

//go:embed templates/report.html.tmpl
var reportTemplates embed.FS

var reportTemplate = template.Must(template.ParseFS(reportTemplates, "templates/report.html.tmpl"))

// familyReport is the hierarchy plus the detail card of every member.
type familyReport struct {
	Title       string          `json:"title"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Tree        []*reportNode   `json:"tree"`
	Members     []*reportMember `json:"members"`
}

type reportRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type reportNode struct {
	reportRef
	Spouse   *reportRef    `json:"spouse,omitempty"`
	Children []*reportNode `json:"children,omitempty"`
}

type reportMember struct {
	reportRef
	DateOfBirth  string      `json:"dob,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	Occupation   string      `json:"occupation,omitempty"`
	Address      string      `json:"address,omitempty"`
	About        string      `json:"about,omitempty"`
	ImageURL     string      `json:"image,omitempty"`
	LocationLink string      `json:"location,omitempty"`
	Spouse       *reportRef  `json:"spouse,omitempty"`
	Children     []reportRef `json:"children,omitempty"`
}

func newReportCmd() *cobra.Command {
	var (
		format string
		output string
		depth  int
		title  string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the family hierarchy and member details as HTML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != reportFormatHTML && format != reportFormatJSON {
				return errors.Errorf("unknown report format %q (want html or json)", format)
			}

			var (
				family    usecase.FamilyUsecase
				directory usecase.DirectoryUsecase
			)

			return runApp(cmd.Context(), func(ctx context.Context) error {
				roots, err := family.Tree(ctx, depth)
				if err != nil {
					return err
				}
				members, err := directory.ListMembers(ctx)
				if err != nil {
					return err
				}
				report := buildReport(title, time.Now(), roots, members)

				if output == "" || output == "-" {
					return writeReport(cmd.OutOrStdout(), format, report)
				}

				f, err := os.Create(output)
				if err != nil {
					return errors.Wrapf(err, "failed to create %s", output)
				}
				if err := writeReport(f, format, report); err != nil {
					_ = f.Close()

					return err
				}
				if err := f.Close(); err != nil {
					return errors.Wrapf(err, "failed to write %s", output)
				}
				cmd.PrintErrf("Report with %d members written to %s\n", len(report.Members), output)

				return nil
			},
				fx.Provide(
					persistence.NewStore,
					storage.New,
					maps.NewDistanceCalculator,
					func(cfg *config.Config) service.QRCodeService { return qrcode.NewQRCodeService(cfg.QRCode) },
					impl.NewFamilyService,
					impl.NewDirectoryService,
				),
				fx.Populate(&family, &directory),
			)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", reportFormatHTML, "Report format: html or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write (stdout when empty)")
	cmd.Flags().IntVar(&depth, "depth", 0, "Generations to include below the roots (0 includes all)")
	cmd.Flags().StringVar(&title, "title", "Family Tree Report", "Report title")

	return cmd
}

func buildReport(title string, now time.Time, roots []*usecase.FamilyTreeNode, members []*usecase.MemberView) *familyReport {
	report := &familyReport{
		Title:       title,
		GeneratedAt: now,
		Tree:        make([]*reportNode, 0, len(roots)),
		Members:     make([]*reportMember, 0, len(members)),
	}
	for _, root := range roots {
		report.Tree = append(report.Tree, reportTreeNode(root))
	}

	for _, v := range members {
		m := v.Member
		rm := &reportMember{
			reportRef:    refOf(v),
			Phone:        m.Phone,
			Occupation:   m.Occupation,
			Address:      m.Address,
			About:        m.About,
			ImageURL:     v.ImageURL,
			LocationLink: v.LocationLink,
		}
		if m.DateOfBirth != nil {
			rm.DateOfBirth = m.DateOfBirth.Format(reportDOBLayout)
		}
		if v.Spouse != nil {
			spouse := refOf(v.Spouse)
			rm.Spouse = &spouse
		}
		for _, child := range v.Children {
			rm.Children = append(rm.Children, refOf(child))
		}
		report.Members = append(report.Members, rm)
	}

	return report
}

func reportTreeNode(n *usecase.FamilyTreeNode) *reportNode {
	node := &reportNode{reportRef: refOf(n.Member)}
	if n.Spouse != nil {
		spouse := refOf(n.Spouse)
		node.Spouse = &spouse
	}
	for _, child := range n.Children {
		node.Children = append(node.Children, reportTreeNode(child))
	}

	return node
}

func refOf(v *usecase.MemberView) reportRef {
	return reportRef{ID: v.Member.ID, Name: v.Member.Name}
}

func writeReport(w io.Writer, format string, report *familyReport) error {
	if format == reportFormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return errors.Wrap(enc.Encode(report), "failed to encode report")
	}

	return errors.Wrap(reportTemplate.Execute(w, report), "failed to render report")
}
