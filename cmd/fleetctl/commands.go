package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fleet-wars-backend/internal/commitment"
	"fleet-wars-backend/internal/models"
)

func newBoardCmd(scheme *string) *cobra.Command {
	var places []string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Lay out a fleet and seal it with a fresh salt",
		Long: "Places the 2, 3 and 4 cell ships given by --place (cell:length:h|v),\n" +
			"or at random when none are given, and prints the secret to keep until reveal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := commitment.ByName(*scheme)
			if err != nil {
				return err
			}

			var board models.Bitboard
			if len(places) == 0 {
				board, _, err = commitment.RandomBoard()
			} else {
				var placements []commitment.Placement
				placements, err = parsePlacements(places)
				if err == nil {
					board, err = commitment.BuildBoard(placements)
				}
			}
			if err != nil {
				return err
			}

			secret, err := commitment.Seal(s, board)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderBoard(out, board)
			return writeJSON(out, secret)
		},
	}
	cmd.Flags().StringSliceVar(&places, "place", nil, "ship placement cell:length:h|v, e.g. 0:2:h")
	return cmd
}

func newCommitCmd(scheme *string) *cobra.Command {
	var boardArg, saltArg string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Compute the commitment for a board and salt",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, board, salt, err := parseOpening(*scheme, boardArg, saltArg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Commit(board, salt))
			return nil
		},
	}
	cmd.Flags().StringVar(&boardArg, "board", "", "board bitmask (decimal or 0x hex)")
	cmd.Flags().StringVar(&saltArg, "salt", "", "32-byte salt as hex")
	cmd.MarkFlagRequired("board")
	cmd.MarkFlagRequired("salt")
	return cmd
}

func newVerifyCmd(scheme *string) *cobra.Command {
	var boardArg, saltArg, digestArg string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a board and salt open a commitment",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, board, salt, err := parseOpening(*scheme, boardArg, saltArg)
			if err != nil {
				return err
			}
			var d models.Digest
			if err := d.UnmarshalText([]byte(digestArg)); err != nil {
				return err
			}
			if board.Count() != models.TotalShipCells {
				return models.ErrInvalidBoard
			}
			if !commitment.Open(s, d, board, salt) {
				return models.ErrBoardHashMismatch
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&boardArg, "board", "", "board bitmask (decimal or 0x hex)")
	cmd.Flags().StringVar(&saltArg, "salt", "", "32-byte salt as hex")
	cmd.Flags().StringVar(&digestArg, "commitment", "", "commitment as hex")
	cmd.MarkFlagRequired("board")
	cmd.MarkFlagRequired("salt")
	cmd.MarkFlagRequired("commitment")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <base64-record>",
		Short: "Decode a raw match record as served by /raw",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := base64.StdEncoding.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("invalid base64: %w", err)
			}
			var m models.MatchRecord
			if err := m.UnmarshalBinary(raw); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), &m)
		},
	}
}

func parseOpening(scheme, boardArg, saltArg string) (commitment.Scheme, models.Bitboard, models.Salt, error) {
	var salt models.Salt
	s, err := commitment.ByName(scheme)
	if err != nil {
		return nil, 0, salt, err
	}
	b, err := strconv.ParseUint(boardArg, 0, 64)
	if err != nil {
		return nil, 0, salt, fmt.Errorf("invalid board: %w", err)
	}
	if err := salt.UnmarshalText([]byte(saltArg)); err != nil {
		return nil, 0, salt, err
	}
	return s, models.Bitboard(b), salt, nil
}

func parsePlacements(specs []string) ([]commitment.Placement, error) {
	out := make([]commitment.Placement, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("placement %q: want cell:length:h|v", spec)
		}
		cell, err := strconv.ParseUint(parts[0], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("placement %q: %w", spec, err)
		}
		length, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("placement %q: %w", spec, err)
		}
		var vertical bool
		switch parts[2] {
		case "h":
		case "v":
			vertical = true
		default:
			return nil, fmt.Errorf("placement %q: direction must be h or v", spec)
		}
		out = append(out, commitment.Placement{Cell: uint8(cell), Length: length, Vertical: vertical})
	}
	return out, nil
}

// renderBoard draws the grid with rows A-H and columns 1-8.
func renderBoard(w io.Writer, board models.Bitboard) {
	fmt.Fprintln(w, "  1 2 3 4 5 6 7 8")
	for r := 0; r < models.BoardWidth; r++ {
		row := make([]string, models.BoardWidth)
		for c := range row {
			row[c] = "."
			if board.Has(uint8(r*models.BoardWidth + c)) {
				row[c] = "#"
			}
		}
		fmt.Fprintf(w, "%c %s\n", 'A'+r, strings.Join(row, " "))
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
