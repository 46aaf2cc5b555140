package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/venter/pkg/models"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const apiKeyPrefix = "vt_"

func newOrgCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organisations, their domain keywords and category lists",
	}
	cmd.AddCommand(newOrgCreateCommand(), newOrgKeywordsCommand(), newOrgCategoriesCommand())
	return cmd
}

func newOrgCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an organisation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("organisation name must not be empty")
			}
			_, st, pool, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			now := time.Now().UTC()
			org := &models.Organisation{ID: uuid.New(), Name: name, CreatedAt: now, UpdatedAt: now}
			if err := st.CreateOrganisation(cmd.Context(), org); err != nil {
				return fmt.Errorf("create organisation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", org.ID, org.Name)
			return nil
		},
	}
}

func newOrgKeywordsCommand() *cobra.Command {
	var proposal string

	cmd := &cobra.Command{
		Use:   "keywords <organisation> <domain> <keyword>...",
		Short: "Add a keyword domain used by the keyword classifier",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, pool, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			org, err := st.GetOrganisationByName(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("organisation %q: %w", args[0], err)
			}
			dk := models.DomainKeywords{Domain: args[1], Keywords: args[2:]}
			if err := st.AddDomainKeywords(cmd.Context(), org.ID, proposal, dk); err != nil {
				return fmt.Errorf("add domain keywords: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d keyword(s) for %s\n", org.Name, len(dk.Keywords), dk.Domain)
			return nil
		},
	}
	cmd.Flags().StringVar(&proposal, "proposal", "", "proposal the keywords belong to")
	return cmd
}

func newOrgCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories <organisation> <category>...",
		Short: "Replace the category list offered for flat results",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, pool, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			org, err := st.GetOrganisationByName(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("organisation %q: %w", args[0], err)
			}
			if err := st.SetCategories(cmd.Context(), org.ID, args[1:]); err != nil {
				return fmt.Errorf("set categories: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d categories\n", org.Name, len(args)-1)
			return nil
		},
	}
}

func newKeyCommand() *cobra.Command {
	var staff bool
	var name string

	cmd := &cobra.Command{
		Use:   "key <organisation> <username>",
		Short: "Issue an API key; the raw key is printed once",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, pool, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			org, err := st.GetOrganisationByName(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("organisation %q: %w", args[0], err)
			}

			rawKey, key, err := newAPIKey(org.ID, args[1], name, staff)
			if err != nil {
				return err
			}
			if err := st.CreateAPIKey(cmd.Context(), key); err != nil {
				return fmt.Errorf("create api key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rawKey)
			return nil
		},
	}
	cmd.Flags().BoolVar(&staff, "staff", false, "let the key see every artifact of the organisation")
	cmd.Flags().StringVar(&name, "name", "", "label for the key")
	return cmd
}

// newAPIKey generates a raw key and its stored form.
func newAPIKey(orgID uuid.UUID, username, name string, staff bool) (string, *models.APIKey, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate key: %w", err)
	}
	rawKey := apiKeyPrefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash key: %w", err)
	}

	scopes := []string{}
	if staff {
		scopes = append(scopes, models.ScopeStaff)
	}
	now := time.Now().UTC()
	return rawKey, &models.APIKey{
		ID:             uuid.New(),
		OrganisationID: orgID,
		Username:       username,
		Name:           name,
		KeyHash:        string(hash),
		KeyPrefix:      rawKey[:8],
		Scopes:         scopes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
