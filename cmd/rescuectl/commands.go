package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/angelmondragon/foodrescue/internal/cart"
	"github.com/angelmondragon/foodrescue/internal/orders"
	"github.com/angelmondragon/foodrescue/internal/payments"
	"github.com/angelmondragon/foodrescue/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodrescue/pkg/errors"
	"github.com/angelmondragon/foodrescue/pkg/types"
)

const usage = `usage: rescuectl <command> [flags]

commands:
  cart show|add|remove|set|clear
  checkout [-pickup RFC3339]
  orders list|get|pay|cancel|status|refresh|reset
  providers
  migrate up|down|status|version|validate`

var errUsage = errors.New(usage)

type app struct {
	out       io.Writer
	ledger    *cart.Ledger
	orders    *orders.Reconciler
	providers payments.ProviderLister
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "cart":
		return a.runCart(ctx, args[1:])
	case "checkout":
		return a.runCheckout(ctx, args[1:])
	case "orders":
		return a.runOrders(ctx, args[1:])
	case "providers":
		return a.runProviders(ctx)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func (a *app) runCart(ctx context.Context, args []string) error {
	sub, rest := "show", args
	if len(args) > 0 {
		sub, rest = args[0], args[1:]
	}
	switch sub {
	case "show":
		a.printCart()
		return nil

	case "add":
		fs := newFlagSet("cart add", a.out)
		id := fs.Int64("id", 0, "product id")
		name := fs.String("name", "", "product name")
		price := fs.String("price", "0", "unit price, e.g. 5.99 or \"5.99 €\"")
		portions := fs.Int("portions", 0, "portions left")
		pickup := fs.String("pickup", "", "pickup window")
		restaurant := fs.String("restaurant", "", "restaurant name")
		address := fs.String("address", "", "pickup address")
		image := fs.String("image", "", "image url")
		qty := fs.Int("qty", 1, "quantity to add")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *id <= 0 {
			return errors.New("-id is required")
		}
		product := cart.Product{
			ID:           *id,
			Name:         *name,
			Price:        types.ParsePrice(*price),
			Image:        *image,
			PickupTime:   *pickup,
			Location:     types.Location{Restaurant: *restaurant, Address: *address},
			PortionsLeft: *portions,
		}
		if err := a.ledger.AddItem(ctx, product, *qty); err != nil {
			return displayError(err)
		}
		a.printCart()
		return nil

	case "remove":
		fs := newFlagSet("cart remove", a.out)
		id := fs.String("id", "", "product id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		a.ledger.RemoveItem(ctx, *id)
		a.printCart()
		return nil

	case "set":
		fs := newFlagSet("cart set", a.out)
		id := fs.String("id", "", "product id")
		qty := fs.Int("qty", 1, "new quantity; 0 removes the line")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := a.ledger.SetQuantity(ctx, *id, *qty); err != nil {
			return displayError(err)
		}
		a.printCart()
		return nil

	case "clear":
		a.ledger.Clear(ctx)
		fmt.Fprintln(a.out, "cart cleared")
		return nil

	default:
		return fmt.Errorf("unknown cart command %q", sub)
	}
}

func (a *app) runCheckout(ctx context.Context, args []string) error {
	fs := newFlagSet("checkout", a.out)
	pickupRaw := fs.String("pickup", "", "pickup time (RFC3339); defaults to now plus the configured offset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pickup, err := parsePickup(*pickupRaw)
	if err != nil {
		return err
	}

	result := a.orders.Checkout(ctx, a.ledger.Lines(), pickup)
	if !result.Created {
		return displayError(result.CreateErr)
	}
	a.ledger.Clear(ctx)
	fmt.Fprintf(a.out, "order %s created (%s, total %s)\n",
		result.Order.ID, result.Order.Status, result.Order.TotalPrice.StringFixed(2))

	switch {
	case result.PaymentSkipped:
		fmt.Fprintln(a.out, "payment skipped; run `rescuectl orders pay -id "+result.Order.ID+"` to pay")
		return nil
	case !result.Paid:
		return fmt.Errorf("order %s was created but payment failed: %s", result.Order.ID, pkgerrors.MessageOf(result.PaymentErr))
	}
	fmt.Fprintf(a.out, "payment %s\n", result.Payment.PaymentStatus)
	return nil
}

func (a *app) runOrders(ctx context.Context, args []string) error {
	sub, rest := "list", args
	if len(args) > 0 {
		sub, rest = args[0], args[1:]
	}
	switch sub {
	case "list":
		fs := newFlagSet("orders list", a.out)
		refresh := fs.Bool("refresh", false, "reload the list from the gateway first")
		active := fs.Bool("active", false, "hide completed and cancelled orders")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *refresh && !a.orders.FetchOrders(ctx) {
			return errors.New(a.orders.LastError())
		}
		list := a.orders.Orders()
		if *active {
			list = activeOrders(list)
		}
		a.printOrders(list)
		return nil

	case "refresh":
		if !a.orders.FetchOrders(ctx) {
			return errors.New(a.orders.LastError())
		}
		a.printOrders(a.orders.Orders())
		return nil

	case "get":
		fs := newFlagSet("orders get", a.out)
		id := fs.String("id", "", "order id")
		remote := fs.Bool("remote", false, "fetch from the gateway instead of the local list")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *remote {
			order, ok := a.orders.FetchOrderByID(ctx, *id)
			if !ok {
				return errors.New(a.orders.LastError())
			}
			a.printOrder(*order)
			return nil
		}
		order, ok := a.orders.OrderByID(*id)
		if !ok {
			return fmt.Errorf("order %s not found locally; try -remote", *id)
		}
		a.printOrder(order)
		return nil

	case "pay":
		fs := newFlagSet("orders pay", a.out)
		id := fs.String("id", "", "order id")
		providerRaw := fs.String("provider", "", "payment provider (paypal|stripe)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		provider, err := defaultProvider(*providerRaw)
		if err != nil {
			return err
		}
		outcome, ok := a.orders.PayOrder(ctx, *id, provider)
		if !ok {
			return errors.New(a.orders.LastError())
		}
		fmt.Fprintf(a.out, "payment %s for order %s\n", outcome.PaymentStatus, outcome.OrderID)
		return nil

	case "cancel":
		fs := newFlagSet("orders cancel", a.out)
		id := fs.String("id", "", "order id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if !a.orders.CancelOrder(ctx, *id) {
			return errors.New(a.orders.LastError())
		}
		fmt.Fprintf(a.out, "order %s cancelled\n", *id)
		return nil

	case "status":
		fs := newFlagSet("orders status", a.out)
		id := fs.String("id", "", "order id")
		statusRaw := fs.String("status", "", "new status")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		status, err := enums.ParseOrderStatus(*statusRaw)
		if err != nil {
			return err
		}
		if !a.orders.UpdateOrderStatus(ctx, *id, status) {
			return errors.New(a.orders.LastError())
		}
		fmt.Fprintf(a.out, "order %s is now %s\n", *id, status)
		return nil

	case "reset":
		a.orders.Reset(ctx)
		fmt.Fprintln(a.out, "local orders cleared")
		return nil

	default:
		return fmt.Errorf("unknown orders command %q", sub)
	}
}

func (a *app) runProviders(ctx context.Context) error {
	list, err := payments.Providers(ctx, a.providers)
	if err != nil {
		return displayError(err)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no payment providers enabled")
		return nil
	}
	for _, provider := range list {
		fmt.Fprintf(a.out, "%s\t%s\n", provider, provider.DisplayName())
	}
	return nil
}

func (a *app) printCart() {
	lines := a.ledger.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(a.out, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL\tPICKUP\tRESTAURANT")
	for _, line := range lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			line.ProductID, line.Name, line.Quantity,
			line.UnitPrice.StringFixed(2), line.Subtotal().StringFixed(2),
			line.PickupWindow, line.Location.Restaurant)
	}
	_ = tw.Flush()
	fmt.Fprintf(a.out, "items: %d  total: %s\n", a.ledger.TotalItemCount(), a.ledger.TotalPrice().StringFixed(2))
}

func (a *app) printOrders(list []orders.Order) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no orders")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPAYMENT\tTOTAL\tPICKUP")
	for _, order := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			order.ID, order.Status, order.PaymentStatus,
			order.TotalPrice.StringFixed(2), order.PickupTime.Format(time.RFC3339))
	}
	_ = tw.Flush()
}

// activeOrders drops orders in a final state. Statuses stored as sent by a
// status update are uppercase, so they are normalized before the check.
func activeOrders(list []orders.Order) []orders.Order {
	out := make([]orders.Order, 0, len(list))
	for _, order := range list {
		if orders.NormalizeOrderStatus(string(order.Status)).IsTerminal() {
			continue
		}
		out = append(out, order)
	}
	return out
}

func (a *app) printOrder(order orders.Order) {
	fmt.Fprintf(a.out, "order %s\nstatus: %s\npayment: %s\ntotal: %s\npickup: %s\n",
		order.ID, order.Status, order.PaymentStatus,
		order.TotalPrice.StringFixed(2), order.PickupTime.Format(time.RFC3339))
	for _, item := range order.Items {
		fmt.Fprintf(a.out, "  %d x %s (%s)\n", item.Quantity, item.Name, item.UnitPrice.StringFixed(2))
	}
}

// printHandoff returns a payment handoff that prints the provider URL for the
// user to open.
func printHandoff(w io.Writer) orders.PaymentHandoff {
	return func(_ context.Context, orderID, redirectURL string) error {
		_, err := fmt.Fprintf(w, "complete payment for order %s at: %s\n", orderID, redirectURL)
		return err
	}
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parsePickup(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid -pickup %q: %w", raw, err)
	}
	return &ts, nil
}

func displayError(err error) error {
	if err == nil {
		return nil
	}
	if msg := pkgerrors.MessageOf(err); msg != "" {
		return errors.New(msg)
	}
	return err
}
