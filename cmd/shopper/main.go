package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"storefront/internal/client"
	"storefront/internal/domain"
	"storefront/internal/session"

	"github.com/joho/godotenv"
)

const defaultAPIURL = "http://localhost:3000/api"

const usage = `usage: shopper [-api URL] [-session-file PATH] <command> [args]

commands:
  products [-category C] [-limit N]   list the catalog
  product <id>                        show one product
  categories                          product count per category
  cart                                show the cart and its totals
  add <product-id> [quantity]         add a product to the cart
  set <item-id> <quantity>            set a line's quantity (0 removes it)
  remove <item-id>                    remove a line
  clear                               empty the cart
  session [show|reset]                print or forget the session token
`

var errUsage = errors.New("invalid usage")

func main() {
	_ = godotenv.Load()

	defaultSessionPath, err := session.DefaultPath()
	if err != nil {
		defaultSessionPath = ".storefront-session"
	}

	apiURL := flag.String("api", envOr("STOREFRONT_API_URL", defaultAPIURL), "storefront API base URL")
	sessionFile := flag.String("session-file", envOr("STOREFRONT_SESSION_FILE", defaultSessionPath), "where the session token is kept")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := session.FileStore{Path: *sessionFile}
	c := client.New(*apiURL, store)

	if err := run(ctx, c, store, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "shopper: %v\n\n%s", err, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "shopper: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func run(ctx context.Context, c *client.Client, store session.Store, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "products":
		return listProducts(ctx, c, args, out)
	case "product":
		id, err := idArg(args, "product id")
		if err != nil {
			return err
		}
		product, err := c.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		printProduct(out, product)
		return nil
	case "categories":
		categories, err := c.ListCategories(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CATEGORY\tPRODUCTS")
		for _, summary := range categories {
			fmt.Fprintf(w, "%s\t%d\n", summary.Category, summary.Count)
		}
		return w.Flush()
	case "cart":
		return showCart(ctx, c, out)
	case "add":
		return addToCart(ctx, c, args, out)
	case "set":
		if len(args) != 2 {
			return fmt.Errorf("%w: set takes <item-id> <quantity>", errUsage)
		}
		id, err := idArg(args[:1], "item id")
		if err != nil {
			return err
		}
		quantity, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: quantity must be an integer", errUsage)
		}
		if err := c.UpdateQuantity(ctx, id, quantity); err != nil {
			return err
		}
		return showCart(ctx, c, out)
	case "remove":
		id, err := idArg(args, "item id")
		if err != nil {
			return err
		}
		if err := c.RemoveFromCart(ctx, id); err != nil {
			return err
		}
		return showCart(ctx, c, out)
	case "clear":
		deleted, err := c.ClearCart(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %d line(s)\n", deleted)
		return nil
	case "session":
		return sessionCommand(c, store, args, out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func listProducts(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	category := fs.String("category", "", "exact category to filter by")
	limit := fs.Int("limit", 0, "maximum number of products")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	products, err := c.ListProducts(ctx, domain.Category(*category), *limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tCATEGORY\tNEW")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", p.ID, p.Name, p.Price.String(), p.Category, p.IsNew)
	}
	return w.Flush()
}

func printProduct(out io.Writer, p *domain.Product) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%d\n", p.ID)
	fmt.Fprintf(w, "name\t%s\n", p.Name)
	fmt.Fprintf(w, "price\t%s\n", p.Price.String())
	if p.OriginalPrice.Valid {
		fmt.Fprintf(w, "original price\t%s\n", p.OriginalPrice.Decimal.String())
	}
	if p.DiscountPercent != nil {
		fmt.Fprintf(w, "discount\t%d%%\n", *p.DiscountPercent)
	}
	fmt.Fprintf(w, "category\t%s\n", p.Category)
	if p.Description != nil {
		fmt.Fprintf(w, "description\t%s\n", *p.Description)
	}
	fmt.Fprintf(w, "image\t%s\n", p.Image)
	w.Flush()
}

func addToCart(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: add takes <product-id> [quantity]", errUsage)
	}
	productID, err := idArg(args[:1], "product id")
	if err != nil {
		return err
	}
	quantity := 1
	if len(args) == 2 {
		if quantity, err = strconv.Atoi(args[1]); err != nil || quantity < 1 {
			return fmt.Errorf("%w: quantity must be a positive integer", errUsage)
		}
	}

	// Name, price and image are copied onto the line, so read them fresh
	product, err := c.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	result, err := c.AddToCart(ctx, product, quantity)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s (line %d)\n", result.Action, product.Name, result.ID)
	return showCart(ctx, c, out)
}

func showCart(ctx context.Context, c *client.Client, out io.Writer) error {
	cart, err := c.Cart(ctx)
	if err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		fmt.Fprintln(out, "cart is empty")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tPRODUCT\tPRICE\tQTY\tSUBTOTAL")
	for _, item := range cart.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
			item.ID, item.ProductName, item.ProductPrice.String(), item.Quantity, item.Subtotal().String())
	}
	fmt.Fprintf(w, "\t\t\t%d\t%s\n", cart.Totals.TotalItems, cart.Totals.TotalPrice.String())
	return w.Flush()
}

func sessionCommand(c *client.Client, store session.Store, args []string, out io.Writer) error {
	action := "show"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "show":
		token, err := c.SessionID()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, token)
		return nil
	case "reset":
		// The old cart stays on the server; only this machine forgets it
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(out, "session token removed")
		return nil
	default:
		return fmt.Errorf("%w: session takes show or reset", errUsage)
	}
}

func idArg(args []string, what string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected a single %s", errUsage, what)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errUsage, what)
	}
	return id, nil
}
