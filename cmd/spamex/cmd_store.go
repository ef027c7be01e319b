package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/coregx/spamex/store"
	"github.com/coregx/spamex/stream"
)

func newStoreCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the document store",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "spamex.db", "document store path")

	withStore := func(fn func(*store.Store) error) error {
		s, err := store.Open(dbPath, store.WithLogger(logger))
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(s)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "put NAME FILE",
		Short: "Store a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := fileInput(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			src, err := in.open(cmd.Context())
			if err != nil {
				return err
			}
			return withStore(func(s *store.Store) error {
				n, err := s.Put(cmd.Context(), args[0], src)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d tokens)\n", args[0], n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.Store) error {
				infos, err := s.List()
				if err != nil {
					return err
				}
				for _, info := range infos {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", info.Name, info.Tokens)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.Store) error {
				return s.Delete(args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cat NAME",
		Short: "Print a stored document as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.Store) error {
				src, err := s.Source(args[0])
				if err != nil {
					return err
				}
				toks, err := stream.Collect(cmd.Context(), src)
				if err != nil {
					return err
				}
				return stream.WriteJSON(cmd.OutOrStdout(), slices.Values(toks))
			})
		},
	})

	return cmd
}
