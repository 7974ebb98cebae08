// Command checkout-cli drives the storefront checkout flow against a running
// checkout service: sign in, fill the cart, place the order, pay for it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shopcart/storefront/pkg/storefront"
	"github.com/shopcart/storefront/services/common/auth"
	applogger "github.com/shopcart/storefront/services/common/logger"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	var (
		backendURL, jwtSecret, email, userID string
		itemsFlag, addressFlag, pay          string
		stripeKey, redisURL                  string
		listAfter                            bool
	)
	flag.StringVar(&backendURL, "backend", getEnv("BACKEND_URL", "http://localhost:8092"), "checkout service base URL")
	flag.StringVar(&jwtSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "secret used to sign the access token")
	flag.StringVar(&email, "email", "buyer@example.com", "account email")
	flag.StringVar(&userID, "user", "cli-user", "account id")
	flag.StringVar(&itemsFlag, "items", "1:Sample product:19.99:1", "cart lines as id:title:price:qty, comma separated")
	flag.StringVar(&addressFlag, "address", "", "address to save as phone|street|city|state|postal_code|country")
	flag.StringVar(&pay, "pay", "complete", "payment sheet outcome: complete, cancel or none")
	flag.StringVar(&stripeKey, "stripe-key", os.Getenv("STRIPE_SECRET_KEY"), "Stripe test secret key used to confirm the intent with a test card")
	flag.StringVar(&redisURL, "redis", os.Getenv("REDIS_URL"), "persist the cart in Redis")
	flag.BoolVar(&listAfter, "list", true, "list orders when done")
	flag.Parse()

	logger, err := applogger.Initialize("development")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger, options{
		backendURL: backendURL, jwtSecret: jwtSecret, email: email, userID: userID,
		items: itemsFlag, address: addressFlag, pay: pay, stripeKey: stripeKey,
		redisURL: redisURL, list: listAfter,
	}); err != nil {
		var ce *storefront.CheckoutError
		if errors.As(err, &ce) && ce.OrderID != "" {
			fmt.Fprintf(os.Stderr, "%s (order %s is saved and can be paid later)\n", ce.Message, ce.OrderID)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type options struct {
	backendURL, jwtSecret, email, userID string
	items, address, pay                  string
	stripeKey, redisURL                  string
	list                                 bool
}

func run(logger *zap.Logger, opts options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	token, err := auth.SignAccessToken(opts.jwtSecret, opts.userID, opts.email, time.Hour)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	backend := storefront.NewBackendClient(opts.backendURL, storefront.WithLogger(logger))
	session := storefront.NewSession()
	session.SignIn(storefront.User{ID: opts.userID, Email: opts.email, Token: token})

	var carts storefront.CartStore = storefront.NewMemoryCartStore()
	if opts.redisURL != "" {
		redisOpts, err := redis.ParseURL(opts.redisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		defer client.Close()
		carts = storefront.NewRedisCartStore(client)
	}

	saved, err := carts.Load(ctx, opts.userID)
	if err != nil {
		return err
	}
	session.Cart().Replace(saved)
	lines, err := parseItems(opts.items)
	if err != nil {
		return err
	}
	for _, l := range lines {
		session.Cart().AddItem(l.Product, l.Quantity)
	}
	if err := carts.Save(ctx, opts.userID, session.Cart().Items()); err != nil {
		logger.Warn("failed to persist cart", zap.Error(err))
	}

	book := storefront.NewAddressBook(backend, session)
	if opts.address != "" {
		addr, err := parseAddress(opts.address)
		if err != nil {
			return err
		}
		if _, err := book.Save(ctx, addr); err != nil {
			return err
		}
	} else if _, err := book.Load(ctx); err != nil {
		return err
	}

	q := session.Cart().Quote()
	fmt.Printf("Cart: %d items  subtotal %.2f  shipping %.2f  total %.2f\n", session.Cart().ItemCount(), q.Subtotal, q.Shipping, q.Total)

	placed, err := storefront.NewCheckout(session, backend, backend, carts, logger).PlaceOrder(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Order %s placed, payment session ready\n", placed.OrderID)

	if opts.pay != "none" {
		sheet := &testSheet{outcome: opts.pay, stripeKey: opts.stripeKey}
		res, err := storefront.NewPaymentConfirmer(session, sheet, backend, "", logger).Confirm(ctx, placed.OrderID, placed.Session)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", res.Title, res.Message)
	}

	if opts.list {
		page, err := backend.ListOrders(ctx, token, 1, 10)
		if err != nil {
			return err
		}
		for _, o := range page.Orders {
			fmt.Printf("%s  %-8s  %8.2f  %s\n", o.ID, o.PaymentStatus, o.TotalPrice, o.CreatedAt.Format(time.RFC3339))
		}
	}
	return nil
}

func parseItems(s string) ([]storefront.CartItem, error) {
	var out []storefront.CartItem
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f := strings.Split(part, ":")
		if len(f) != 4 {
			return nil, fmt.Errorf("bad item %q: want id:title:price:qty", part)
		}
		id, err := strconv.ParseInt(f[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad item id %q: %w", f[0], err)
		}
		price, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad item price %q: %w", f[2], err)
		}
		qty, err := strconv.Atoi(f[3])
		if err != nil {
			return nil, fmt.Errorf("bad item quantity %q: %w", f[3], err)
		}
		out = append(out, storefront.CartItem{Product: storefront.Product{ID: id, Title: f[1], Price: price}, Quantity: qty})
	}
	return out, nil
}

func parseAddress(s string) (storefront.Address, error) {
	f := strings.Split(s, "|")
	if len(f) != 6 {
		return storefront.Address{}, fmt.Errorf("address needs 6 fields separated by |, got %d", len(f))
	}
	return storefront.Address{Phone: f[0], Street: f[1], City: f[2], State: f[3], PostalCode: f[4], Country: f[5]}, nil
}
