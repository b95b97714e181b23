// Command auctionctl is the command-line interface to auctiond: minting,
// bidding, withdrawing, operator actions, and state queries.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/emilyhon/project-auctionable-nfts/client"
)

const usage = `usage: auctionctl [-addr host:port] <command> [args]

commands:
  mint     -caller A -payment X [-ref URI]      mint a new item
  bid      -caller A -item N -payment X         bid on an item
  withdraw -caller A                            claim pending credit
  sweep    -caller A -amount X -token T         operator withdrawal
  deposit  -account A -amount X -token T        fund a wallet account
  settle                                        settle the oldest due auction
  status                                        counters and constants
  listing  -item N                              show one listing
  min-bid  -item N                              minimum acceptable bid
  credit   -account A                           pending credit for an account
  balance  -account A                           wallet balance for an account
  liability -token T                            total pending credit (operator)
`

func main() {
	addr := flag.String("addr", "127.0.0.1:5000", "auctiond address")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	c := client.New(*addr)

	command := flag.Arg(0)
	args := flag.Args()[1:]
	if err := run(c, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "auctionctl: %s: %v\n", command, err)
		os.Exit(1)
	}
}

func run(c *client.Client, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	caller := fs.String("caller", "", "caller address")
	account := fs.String("account", "", "account address")
	item := fs.Uint64("item", 0, "item id")
	payment := fs.String("payment", "", "payment amount")
	amount := fs.String("amount", "", "amount")
	ref := fs.String("ref", "", "metadata reference")
	token := fs.String("token", "", "operator token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch command {
	case "mint":
		id, err := c.Mint(*caller, *payment, *ref)
		if err != nil {
			return err
		}
		fmt.Printf("minted item %d\n", id)
	case "bid":
		if err := c.Bid(*caller, *item, *payment); err != nil {
			return err
		}
		fmt.Printf("bid %s accepted on item %d\n", *payment, *item)
	case "withdraw":
		paid, err := c.Withdraw(*caller)
		if err != nil {
			return err
		}
		fmt.Printf("withdrew %s\n", paid)
	case "sweep":
		if err := c.OperatorWithdraw(*caller, *amount, *token); err != nil {
			return err
		}
		fmt.Printf("swept %s\n", *amount)
	case "deposit":
		balance, err := c.Deposit(*account, *amount, *token)
		if err != nil {
			return err
		}
		fmt.Printf("deposited; balance now %s\n", balance)
	case "settle":
		id, winner, err := c.Settle()
		if err != nil {
			return err
		}
		fmt.Printf("item %d settled to %s\n", id, winner)
	case "status":
		status, err := c.Status()
		if err != nil {
			return err
		}
		fmt.Printf("minted:    %d / %d\n", status.MintCount, status.Capacity)
		fmt.Printf("cursor:    %d (ready: %v)\n", status.SettlementCursor, status.ReadyForSettlement)
		fmt.Printf("economics: mint %s, increment %s, duration %s\n",
			status.MintPrice, status.MinBidIncrement, time.Duration(status.AuctionDurationSecs)*time.Second)
	case "listing":
		listing, err := c.Listing(*item)
		if err != nil {
			return err
		}
		fmt.Printf("holder: %s\nbid:    %s\nexpiry: %s\n",
			listing.Holder, listing.BidAmount, time.Unix(listing.ExpiryUnix, 0).UTC().Format(time.RFC3339))
	case "min-bid":
		quote, err := c.MinimumBid(*item)
		if err != nil {
			return err
		}
		fmt.Println(quote)
	case "credit":
		credit, err := c.PendingCredit(*account)
		if err != nil {
			return err
		}
		fmt.Println(credit)
	case "balance":
		balance, err := c.WalletBalance(*account)
		if err != nil {
			return err
		}
		fmt.Println(balance)
	case "liability":
		total, err := c.PendingCreditTotal(*token)
		if err != nil {
			return err
		}
		fmt.Println(total)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}
