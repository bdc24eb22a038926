package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/rag"
)

func newRAGClient() (*rag.Client, error) {
	apiKey := viper.GetString("api-key")
	if apiKey == "" {
		return nil, errors.New("no API key configured, set --api-key or COMPLIANCE_HUB_API_KEY")
	}

	options := []rag.ClientOption{}
	if url := viper.GetString("rag-url"); url != "" {
		options = append(options, rag.WithBaseURL(url))
	}

	return rag.NewClient(apiKey, viper.GetString("rag-id"), options...), nil
}

func newDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage the knowledge base documents",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List documents in the knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newRAGClient()
			if err != nil {
				return err
			}

			documents, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(documents) == 0 {
				fmt.Println("knowledge base is empty")
				return nil
			}
			for _, doc := range documents {
				fmt.Printf("%-40s %-8s %s\n", doc.FileName, doc.FileType, doc.Status)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "upload [file...]",
		Short: "Upload documents and train the knowledge base on them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newRAGClient()
			if err != nil {
				return err
			}

			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return errors.Wrapf(err, "could not open %s", path)
				}
				err = client.UploadAndTrain(cmd.Context(), filepath.Base(path), f)
				_ = f.Close()
				if err != nil {
					return errors.Wrapf(err, "failed to upload %s", path)
				}
				fmt.Printf("uploaded %s\n", filepath.Base(path))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [file-name...]",
		Short: "Delete documents from the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newRAGClient()
			if err != nil {
				return err
			}

			if err := client.Delete(cmd.Context(), args...); err != nil {
				return err
			}
			fmt.Printf("deleted %d document(s)\n", len(args))
			return nil
		},
	})

	return cmd
}
