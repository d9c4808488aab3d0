package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fluuu/partybeaver-deployments/deployment"
	"github.com/fluuu/partybeaver-deployments/domain"
	"github.com/fluuu/partybeaver-deployments/internal/text"
)

var (
	addressBookShort = "Address book operations"

	addressBookLong = text.LongDesc(`
		Commands for inspecting the address book of an environment. The address book records
		every deployed contract with its type, version and labels per chain.
	`)

	addressBookListExample = text.Examples(`
		# Print the testnet address book as a table
		partybeaver address-book list -e testnet

		# Print it as YAML
		partybeaver address-book list -e testnet --format yaml
	`)
)

func newAddressBookCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address-book",
		Short: addressBookShort,
		Long:  addressBookLong,
	}

	list := &cobra.Command{
		Use:     "list",
		Short:   "List the recorded contracts",
		Example: addressBookListExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAddressBookList(cmd, cfg, mustString(cmd.Flags().GetString("format")))
		},
	}
	list.Flags().StringP("format", "f", "table", "Output format: table, json or yaml")

	cmd.AddCommand(list)

	return cmd
}

type addressRecord struct {
	Chain         string   `json:"chain" yaml:"chain"`
	ChainSelector uint64   `json:"chainSelector" yaml:"chain_selector"`
	Address       string   `json:"address" yaml:"address"`
	Type          string   `json:"type" yaml:"type"`
	Version       string   `json:"version" yaml:"version"`
	Labels        []string `json:"labels" yaml:"labels"`
}

func runAddressBookList(cmd *cobra.Command, cfg Config, format string) error {
	s, err := loadSession(cmd, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	ab, err := domain.NewEnvDir(s.cfg.Deployments.Dir, s.environment).AddressBook()
	if err != nil {
		return err
	}

	records, err := addressRecords(ab)
	if err != nil {
		return err
	}

	return writeRecords(cmd.OutOrStdout(), format, records)
}

func addressRecords(ab deployment.AddressBook) ([]addressRecord, error) {
	all, err := ab.Addresses()
	if err != nil {
		return nil, err
	}

	records := []addressRecord{}
	for sel, addrs := range all {
		name := strconv.FormatUint(sel, 10)
		if details, ok := chainsel.ChainBySelector(sel); ok && details.Name != "" {
			name = details.Name
		}

		for addr, tv := range addrs {
			records = append(records, addressRecord{
				Chain:         name,
				ChainSelector: sel,
				Address:       addr,
				Type:          tv.Type.String(),
				Version:       tv.Version.String(),
				Labels:        tv.Labels.List(),
			})
		}
	}

	slices.SortFunc(records, func(a, b addressRecord) int {
		if a.ChainSelector != b.ChainSelector {
			if a.ChainSelector < b.ChainSelector {
				return -1
			}

			return 1
		}

		return strings.Compare(a.Address, b.Address)
	})

	return records, nil
}

func writeRecords(w io.Writer, format string, records []addressRecord) error {
	switch format {
	case "table":
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Chain", "Address", "Type", "Version", "Labels"})
		table.SetAutoWrapText(false)
		for _, r := range records {
			table.Append([]string{r.Chain, r.Address, r.Type, r.Version, strings.Join(r.Labels, ",")})
		}
		table.Render()

		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(records)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}

		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q, use table, json or yaml", format)
	}
}
