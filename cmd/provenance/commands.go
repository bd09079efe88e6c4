package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/anushreemehta6/predict-provenance-chain/pkgs/identifier"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/registry"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/submitter"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/utils"
	"github.com/anushreemehta6/predict-provenance-chain/pkgs/wallet"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection, network, and reporter authorization status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.manager.ResumeSession(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("State:    %s\n", status.State)
			fmt.Printf("Target:   chain %d (%s)\n",
				a.manager.TargetNetwork().ChainID, a.manager.TargetNetwork().Name)
			fmt.Printf("Contract: %s\n", a.gateway.Contract().Hex())

			if status.State == wallet.StateDisconnected {
				fmt.Println("Account:  none (set PRIVATE_KEY to enable writes)")
				return nil
			}

			fmt.Printf("Account:  %s\n", status.Account.Hex())
			fmt.Printf("Network:  %d\n", status.NetworkID)

			authorized, err := a.resolver.IsAuthorizedReporter(ctx, status.Account, status.NetworkID)
			if err != nil {
				return err
			}
			fmt.Printf("Reporter: %v\n", authorized)
			return nil
		},
	}
}

func newSubmitCmd() *cobra.Command {
	var (
		predictionHash string
		predictionData string
		inputHash      string
		inputData      string
		modelVersion   string
		contentPointer string
		pinContent     string
		wait           bool
		force          bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Anchor a new prediction record on the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			predID, err := resolveIdentifier(predictionHash, predictionData)
			if err != nil {
				return fmt.Errorf("prediction: %w", err)
			}
			inID, err := resolveIdentifier(inputHash, inputData)
			if err != nil {
				return fmt.Errorf("input: %w", err)
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.connect(ctx); err != nil {
				return err
			}

			if pinContent != "" {
				if contentPointer != "" {
					return fmt.Errorf("provide --content-pointer or --pin-content, not both")
				}
				if a.content == nil {
					return fmt.Errorf("--pin-content requires IPFS_ENABLED=true")
				}
				payload, err := readValueOrFile(pinContent)
				if err != nil {
					return fmt.Errorf("pin content: %w", err)
				}
				contentPointer, err = a.content.Pin(ctx, payload)
				if err != nil {
					return err
				}
				fmt.Printf("Pinned:    %s\n", contentPointer)
			}

			draft := submitter.Draft{
				PredictionHash: predID,
				InputHash:      inID,
				ModelVersion:   modelVersion,
				ContentPointer: contentPointer,
			}

			if !force {
				duplicate, err := a.pipeline.IsDuplicate(ctx, draft)
				if err != nil {
					return err
				}
				if duplicate {
					return fmt.Errorf("record %s already exists on the ledger", predID.Hex())
				}
			}

			submission, err := a.pipeline.Submit(ctx, draft)
			if err != nil {
				return err
			}

			explorer := a.manager.TargetNetwork().ExplorerURL
			fmt.Printf("Broadcast: %s\n", submission.TransactionID().Hex())
			fmt.Printf("Explorer:  %s\n", utils.ExplorerTxURL(explorer, submission.TransactionID().Hex()))

			if !wait {
				return nil
			}

			outcome, err := submission.Wait(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Confirmed: block %d, gas used %d\n", outcome.BlockHeight, outcome.GasUsed)
			return nil
		},
	}

	cmd.Flags().StringVar(&predictionHash, "prediction-hash", "", "32-byte prediction hash (0x-prefixed hex)")
	cmd.Flags().StringVar(&predictionData, "prediction-data", "", "prediction content to hash (string or @file)")
	cmd.Flags().StringVar(&inputHash, "input-hash", "", "32-byte input hash (0x-prefixed hex)")
	cmd.Flags().StringVar(&inputData, "input-data", "", "input content to hash (string or @file)")
	cmd.Flags().StringVar(&modelVersion, "model-version", "", "model version string (required)")
	cmd.Flags().StringVar(&contentPointer, "content-pointer", "", "optional content locator, e.g. an IPFS CID")
	cmd.Flags().StringVar(&pinContent, "pin-content", "", "payload to pin to IPFS as the content pointer (string or @file)")
	cmd.Flags().BoolVar(&wait, "wait", true, "wait for confirmation")
	cmd.Flags().BoolVar(&force, "force", false, "skip the duplicate pre-check")

	return cmd
}

func newHistoryCmd() *cobra.Command {
	var modelVersion string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List all recorded predictions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.history.FetchHistory(ctx, modelVersion)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No records found")
				return nil
			}

			for _, entry := range entries {
				fmt.Printf("%-22s %-14s %-14s block %-9d ts %d  %s\n",
					utils.ShortHash(entry.PredictionHash.Hex()),
					entry.ModelVersion,
					utils.ShortAddress(entry.Reporter.Hex()),
					entry.BlockHeight,
					entry.Timestamp,
					utils.ShortHash(entry.TransactionID.Hex()),
				)
			}
			fmt.Printf("%d record(s)\n", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&modelVersion, "model-version", "", "only show records for this model version")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var fetchContent bool

	cmd := &cobra.Command{
		Use:   "verify <prediction-hash>",
		Short: "Re-verify a record against the authoritative on-chain copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			localHash, err := identifier.Parse(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.verifier.Verify(ctx, localHash)
			if err != nil {
				return err
			}

			fmt.Printf("Verdict: %s\n", result.Verdict)
			if result.Record != nil {
				fmt.Printf("Model:    %s\n", result.Record.ModelVersion)
				fmt.Printf("Reporter: %s\n", result.Record.Reporter.Hex())
				fmt.Printf("Block:    %d\n", result.Record.BlockHeight)
				if result.Record.ContentPointer != "" {
					fmt.Printf("Content:  %s\n", result.Record.ContentPointer)
					if fetchContent {
						if a.content == nil {
							return fmt.Errorf("--fetch-content requires IPFS_ENABLED=true")
						}
						payload, err := a.content.Fetch(ctx, result.Record.ContentPointer)
						if err != nil {
							return err
						}
						fmt.Printf("Payload (%d bytes):\n%s\n", len(payload), payload)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fetchContent, "fetch-content", false, "fetch and print the payload behind the content pointer")
	return cmd
}

func newGrantReporterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant-reporter <address>",
		Short: "Grant the reporter role to an account (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCall(cmd.Context(), args[0], registry.GrantReporterCall)
		},
	}
}

func newRevokeReporterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-reporter <address>",
		Short: "Revoke the reporter role from an account (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCall(cmd.Context(), args[0], registry.RevokeReporterCall)
		},
	}
}

func runAdminCall(ctx context.Context, address string, build func(common.Address) registry.WriteCall) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address: %s", address)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.connect(ctx); err != nil {
		return err
	}

	submission, err := a.pipeline.SubmitAdmin(ctx, build(common.HexToAddress(address)))
	if err != nil {
		return err
	}

	fmt.Printf("Broadcast: %s\n", submission.TransactionID().Hex())
	outcome, err := submission.Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Confirmed: block %d\n", outcome.BlockHeight)
	return nil
}

// resolveIdentifier accepts either an explicit hash or raw content to hash.
// Content prefixed with @ is read from a file.
func resolveIdentifier(hashValue, dataValue string) (identifier.Identifier, error) {
	switch {
	case hashValue != "" && dataValue != "":
		return identifier.Zero, fmt.Errorf("provide a hash or data, not both")
	case hashValue != "":
		return identifier.Parse(hashValue)
	case dataValue == "":
		return identifier.Zero, fmt.Errorf("a hash or data value is required")
	}

	payload, err := readValueOrFile(dataValue)
	if err != nil {
		return identifier.Zero, fmt.Errorf("failed to read content file: %w", err)
	}
	return identifier.Hash(payload), nil
}

// readValueOrFile returns the literal value, or the file contents when the
// value is prefixed with @.
func readValueOrFile(value string) ([]byte, error) {
	if strings.HasPrefix(value, "@") {
		return os.ReadFile(strings.TrimPrefix(value, "@"))
	}
	return []byte(value), nil
}
