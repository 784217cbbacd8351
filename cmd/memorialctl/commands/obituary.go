package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simp-lee/memorial/internal/client"
	"github.com/simp-lee/memorial/internal/domain"
	"github.com/simp-lee/memorial/internal/pkg"
)

func (c *cli) newListCommand() *cobra.Command {
	var page, pageSize int
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List obituaries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			res, err := c.session.Client().ListObituaries(cmd.Context(), page, pageSize)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == outputJSON {
				return printJSON(out, res)
			}
			if err := printObituaryTable(out, res.Data); err != nil {
				return err
			}
			p := res.Pagination
			fmt.Fprintf(out, "\nPage %d of %d (%d total)\n", p.CurrentPage, max(p.TotalPages, 1), p.TotalCount)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 10, "Items per page")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")

	return cmd
}

func (c *cli) newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one obituary as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			o, err := c.session.Client().GetObituary(cmd.Context(), id)
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("obituary %d not found", id)
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), o)
		},
	}
}

func (c *cli) newSearchCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Find obituaries by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			found, err := c.session.Client().SearchObituaries(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == outputJSON {
				return printJSON(out, found)
			}
			if len(found) == 0 {
				fmt.Fprintln(out, "No matches")
				return nil
			}
			return printObituaryTable(out, found)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")

	return cmd
}

// obituaryFlags are the editable fields shared by create and update.
type obituaryFlags struct {
	name      string
	born      string
	died      string
	biography string
	bioFile   string
	photo     string
}

func (f *obituaryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Full name")
	cmd.Flags().StringVar(&f.born, "born", "", "Date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.died, "died", "", "Date of death (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.biography, "bio", "", "Biography text")
	cmd.Flags().StringVar(&f.bioFile, "bio-file", "", "Read the biography from a file")
	cmd.Flags().StringVar(&f.photo, "photo", "", "Image file to attach as the primary photo")
	cmd.MarkFlagsMutuallyExclusive("bio", "bio-file")
}

// apply copies the flags the user set onto o.
func (f *obituaryFlags) apply(cmd *cobra.Command, o *client.Obituary) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		o.FullName = strings.TrimSpace(f.name)
	}
	if changed("born") {
		d, err := domain.ParseDate(f.born)
		if err != nil {
			return fmt.Errorf("--born: %w", err)
		}
		o.DateOfBirth = d
	}
	if changed("died") {
		d, err := domain.ParseDate(f.died)
		if err != nil {
			return fmt.Errorf("--died: %w", err)
		}
		o.DateOfDeath = d
	}
	if changed("bio") {
		o.Biography = strings.TrimSpace(f.biography)
	}
	if changed("bio-file") {
		raw, err := os.ReadFile(f.bioFile)
		if err != nil {
			return fmt.Errorf("read biography: %w", err)
		}
		o.Biography = strings.TrimSpace(string(raw))
	}
	if changed("photo") {
		raw, err := os.ReadFile(f.photo)
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
		photo := pkg.EncodeDataURL(raw)
		if d, err := pkg.ParseDataURL(photo); err != nil || !d.IsImage() {
			return fmt.Errorf("photo %s is not an image", f.photo)
		}
		o.PrimaryPhotoBase64 = photo
	}
	return nil
}

func (c *cli) newCreateCommand() *cobra.Command {
	var f obituaryFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an obituary",
		Example: `  memorialctl create --name "Ada Lovelace" --born 1815-12-10 --died 1852-11-27 \
    --bio-file ada.txt --photo ada.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := c.credential(cmd.Context())
			if err != nil {
				return err
			}

			var o client.Obituary
			if err := f.apply(cmd, &o); err != nil {
				return err
			}
			if err := client.ValidateObituary(&o); err != nil {
				return err
			}

			created, err := c.session.Client().CreateObituary(cmd.Context(), cred, &o)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}

	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("born")
	_ = cmd.MarkFlagRequired("died")

	return cmd
}

func (c *cli) newUpdateCommand() *cobra.Command {
	var f obituaryFlags
	var clearPhoto bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an obituary",
		Long: `Fetch the obituary, apply the fields given as flags and save it. Fields
without a flag keep their current value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cred, err := c.credential(cmd.Context())
			if err != nil {
				return err
			}

			api := c.session.Client()
			o, err := api.GetObituary(cmd.Context(), id)
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("obituary %d not found", id)
				}
				return err
			}
			if err := f.apply(cmd, o); err != nil {
				return err
			}
			if clearPhoto {
				o.PrimaryPhotoBase64 = ""
			}
			if err := client.ValidateObituary(o); err != nil {
				return err
			}

			if err := api.UpdateObituary(cmd.Context(), cred, id, o); err != nil {
				if client.KindOf(err) == client.KindForbidden {
					return fmt.Errorf("obituary %d belongs to another user", id)
				}
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated obituary %d\n", id)
			return nil
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&clearPhoto, "clear-photo", false, "Remove the primary photo")
	cmd.MarkFlagsMutuallyExclusive("photo", "clear-photo")

	return cmd
}

func (c *cli) newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an obituary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cred, err := c.credential(cmd.Context())
			if err != nil {
				return err
			}

			if err := c.session.Client().DeleteObituary(cmd.Context(), cred, id); err != nil {
				switch client.KindOf(err) {
				case client.KindNotFound:
					return fmt.Errorf("obituary %d not found", id)
				case client.KindForbidden:
					return fmt.Errorf("obituary %d belongs to another user", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted obituary %d\n", id)
			return nil
		},
	}
}

func (c *cli) newGenerateBioCommand() *cobra.Command {
	var name, born, died, facts string

	cmd := &cobra.Command{
		Use:   "generate-bio",
		Short: "Draft a biography from key facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.GenerateBiographyRequest{
				FullName:  strings.TrimSpace(name),
				Biography: strings.TrimSpace(facts),
			}
			var err error
			if req.DateOfBirth, err = domain.ParseDate(born); err != nil {
				return fmt.Errorf("--born: %w", err)
			}
			if req.DateOfDeath, err = domain.ParseDate(died); err != nil {
				return fmt.Errorf("--died: %w", err)
			}
			if err := client.ValidateBiographyRequest(req); err != nil {
				return err
			}

			resp, err := c.session.Client().GenerateBiography(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.GeneratedBiography)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&born, "born", "", "Date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&died, "died", "", "Date of death (YYYY-MM-DD)")
	cmd.Flags().StringVar(&facts, "facts", "", "Key facts to expand")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("born")
	_ = cmd.MarkFlagRequired("died")
	_ = cmd.MarkFlagRequired("facts")

	return cmd
}
