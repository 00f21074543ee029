package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN builds a position from a FEN record. The clock fields are
// optional, as many GUIs omit them.
func ParseFEN(fen string) (Position, error) {
	var p Position
	p.epSquare = SquareNone
	p.fullMove = 1

	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return p, fmt.Errorf("fen %q: want at least 4 fields, got %d", fen, len(fields))
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return p, fmt.Errorf("fen %q: want 8 ranks, got %d", fen, len(ranks))
	}
	for i, rankStr := range ranks {
		rank, file := 7-i, 0
		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			pc := pieceFromChar(c)
			if pc == PieceNone || file > 7 {
				return p, fmt.Errorf("fen %q: bad rank %q", fen, rankStr)
			}
			p.xorPiece(pc.Color(), pc.Type(), MakeSquare(file, rank))
			file++
		}
		if file != 8 {
			return p, fmt.Errorf("fen %q: rank %q covers %d files", fen, rankStr, file)
		}
	}

	switch fields[1] {
	case "w":
		p.side = White
	case "b":
		p.side = Black
		p.key ^= zobSide
	default:
		return p, fmt.Errorf("fen %q: bad side %q", fen, fields[1])
	}

	if fields[2] != "-" {
		for j := 0; j < len(fields[2]); j++ {
			switch fields[2][j] {
			case 'K':
				p.castling |= CastleWhiteKing
			case 'Q':
				p.castling |= CastleWhiteQueen
			case 'k':
				p.castling |= CastleBlackKing
			case 'q':
				p.castling |= CastleBlackQueen
			default:
				return p, fmt.Errorf("fen %q: bad castling %q", fen, fields[2])
			}
		}
	}
	p.key ^= zobCastle[p.castling]

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil {
			return p, fmt.Errorf("fen %q: %v", fen, err)
		}
		p.epSquare = sq
		p.key ^= zobEP[sq.File()]
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return p, fmt.Errorf("fen %q: bad halfmove clock %q", fen, fields[4])
		}
		p.rule50 = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return p, fmt.Errorf("fen %q: bad move number %q", fen, fields[5])
		}
		p.fullMove = n
	}

	if p.Pieces[White][King].Count() != 1 || p.Pieces[Black][King].Count() != 1 {
		return p, fmt.Errorf("fen %q: each side needs exactly one king", fen)
	}

	p.sinceNull = p.rule50
	p.updateCheckers()
	return p, nil
}

// FEN serializes the position.
func (p *Position) FEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			pc := p.PieceAt(MakeSquare(file, rank))
			if pc == PieceNone {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.side == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}
	sb.WriteByte(' ')
	sb.WriteString(p.castling.String())
	sb.WriteByte(' ')
	sb.WriteString(p.epSquare.String())
	fmt.Fprintf(&sb, " %d %d", p.rule50, p.fullMove)

	return sb.String()
}

// ParseMove resolves a long-algebraic move string against the legal moves of
// the position, so the special-move kind bits come out right.
func (p *Position) ParseMove(s string) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return MoveNone, fmt.Errorf("bad move %q", s)
	}
	from, err := ParseSquare(s[:2])
	if err != nil {
		return MoveNone, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return MoveNone, err
	}
	promo := PieceTypeNone
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return MoveNone, fmt.Errorf("bad promotion in %q", s)
		}
	}

	var ml MoveList
	p.LegalMoves(&ml)
	for i := 0; i < ml.Len(); i++ {
		m := ml.At(i)
		if m.From() != from || m.To() != to {
			continue
		}
		if m.IsPromotion() {
			if m.Promotion() == promo {
				return m, nil
			}
			continue
		}
		if promo == PieceTypeNone {
			return m, nil
		}
	}
	return MoveNone, fmt.Errorf("illegal move %q", s)
}
