package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wisdom-empire/internal/apiclient"
	"wisdom-empire/internal/donation"
	"wisdom-empire/internal/models"
	"wisdom-empire/internal/wizard"
)

type donateOptions struct {
	api         string
	tier        string
	method      string
	name        string
	email       string
	certificate string
}

func donateCmd(e *env) *cobra.Command {
	var opts donateOptions
	cmd := &cobra.Command{
		Use:   "donate",
		Short: "Make a donation through the API",
		Long: `Walk through the donation wizard against a running server.

Card payments print the checkout URL to open. PayPal and crypto donations
are confirmed right away and can write the certificate PDF.

Examples:
  wisdomctl donate --tier "Wisdom Patron" --method stripe --name Ada --email ada@example.com
  wisdomctl donate --tier "Wisdom Supporter" --method crypto --name Ada --email ada@example.com --certificate ada.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDonate(cmd.Context(), e, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.api, "api", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&opts.tier, "tier", "", "tier name, see 'wisdomctl tiers'")
	cmd.Flags().StringVar(&opts.method, "method", "stripe", "payment method: stripe, paypal or crypto")
	cmd.Flags().StringVar(&opts.name, "name", "", "donor name")
	cmd.Flags().StringVar(&opts.email, "email", "", "donor email")
	cmd.Flags().StringVar(&opts.certificate, "certificate", "", "write the certificate PDF to this path")
	cmd.MarkFlagRequired("tier")
	return cmd
}

func runDonate(ctx context.Context, e *env, opts donateOptions, out io.Writer) error {
	method, err := models.ParsePaymentMethod(opts.method)
	if err != nil {
		return err
	}

	client := apiclient.New(opts.api)
	catalog, err := client.Tiers(ctx)
	if err != nil {
		return fmt.Errorf("fetch tiers: %w", err)
	}
	var tier *models.Tier
	for i := range catalog {
		if catalog[i].Name == opts.tier {
			tier = &catalog[i]
			break
		}
	}
	if tier == nil {
		return fmt.Errorf("unknown tier %q", opts.tier)
	}

	nav := wizard.NavigatorFunc(func(url string) error {
		_, err := fmt.Fprintf(out, "Open %s\n", url)
		return err
	})
	w := wizard.New(client, nav, e.cfg.SimulatedRailDelay)
	w.OnChange = func(from, to wizard.State) {
		e.logger.Debug("wizard step", zap.String("from", string(from)), zap.String("to", string(to)))
	}

	if err := w.Start(); err != nil {
		return err
	}
	if err := w.SelectTier(*tier); err != nil {
		return err
	}
	if err := w.SelectPaymentMethod(method); err != nil {
		return err
	}

	res, err := w.SubmitDonorForm(ctx, models.DonorFields{Name: opts.name, Email: opts.email})
	if errors.Is(err, donation.ErrValidation) {
		return errors.New("--name and --email are required")
	}
	if err != nil {
		return err
	}

	if res.Redirected {
		fmt.Fprintf(out, "Finish the payment in your browser. Donation %s stays pending until checkout completes.\n", res.DonationID)
		return nil
	}

	rec, err := client.Complete(ctx, res.DonationID, "")
	if err != nil {
		return fmt.Errorf("complete donation: %w", err)
	}
	fmt.Fprintf(out, "Thank you, %s! Your %s donation of %s is recorded.\n", rec.Name, rec.Tier, tier.Amount)

	if opts.certificate == "" {
		return nil
	}
	pdf, err := client.Certificate(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("download certificate: %w", err)
	}
	if err := os.WriteFile(opts.certificate, pdf, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "Certificate saved to %s\n", opts.certificate)
	return nil
}
