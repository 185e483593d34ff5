package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lox/pokerface/internal/store"
)

// TablesCmd manages the table records of a store file
type TablesCmd struct {
	Store string `kong:"default='tables.toml',help='Path to the TOML table store'"`

	List   TablesListCmd   `cmd:"" help:"List tables"`
	Create TablesCreateCmd `cmd:"" help:"Create a table"`
	Delete TablesDeleteCmd `cmd:"" help:"Delete a table"`
}

type TablesListCmd struct{}

func (c *TablesListCmd) Run(parent *TablesCmd) error {
	s, err := store.Open(parent.Store)
	if err != nil {
		return err
	}
	records, err := s.List(context.Background())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(mutedStyle.Render("No tables in " + s.Path()))
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%d tables in %s", len(records), s.Path())))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tANTE\tBLINDS\tBETS\tSEATS")
	for _, r := range store.SortedTables(records) {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d/%d\t%d-%d\t%d\n", r.ID, r.Name, r.Ante, r.SmallBlind, r.BigBlind, r.MinBet, r.MaxBet, r.MaxSeats)
	}
	return w.Flush()
}

type TablesCreateCmd struct {
	Name       string `arg:"" help:"Table name"`
	Ante       *int   `kong:"help='Ante (default 5)'"`
	SmallBlind int    `kong:"default='5',help='Small blind'"`
	BigBlind   int    `kong:"default='10',help='Big blind'"`
	MinBet     int    `kong:"default='5',help='Minimum bet'"`
	MaxBet     int    `kong:"default='10000',help='Maximum bet'"`
	MaxSeats   int    `kong:"default='8',help='Number of seats'"`
}

func (c *TablesCreateCmd) Run(parent *TablesCmd) error {
	s, err := store.Open(parent.Store)
	if err != nil {
		return err
	}
	records, err := s.List(context.Background())
	if err != nil {
		return err
	}

	rec := store.NewRecord(records, c.Name)
	rec.ID = 0
	rec.SmallBlind = c.SmallBlind
	rec.BigBlind = c.BigBlind
	rec.MinBet = c.MinBet
	rec.MaxBet = c.MaxBet
	rec.MaxSeats = c.MaxSeats
	if c.Ante != nil {
		rec.Ante = *c.Ante
	}

	saved, err := s.Save(context.Background(), rec)
	if err != nil {
		return err
	}
	fmt.Println(winStyle.Render(fmt.Sprintf("Created table %d %q", saved.ID, saved.Name)))
	return nil
}

type TablesDeleteCmd struct {
	ID int `arg:"" help:"Table id"`
}

func (c *TablesDeleteCmd) Run(parent *TablesCmd) error {
	s, err := store.Open(parent.Store)
	if err != nil {
		return err
	}
	if err := s.Delete(context.Background(), c.ID); err != nil {
		return err
	}
	fmt.Println(winStyle.Render(fmt.Sprintf("Deleted table %d", c.ID)))
	return nil
}
