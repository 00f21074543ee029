// Package board implements the chess board: bitboard position,
// magic-bitboard attack generation, legal move generation and Zobrist keying.
package board

import "fmt"

// Square indexes the board 0..63, A1=0, H1=7, A8=56, H8=63.
type Square uint8

const (
	A1 Square = iota
	B1
	C1
	D1
	E1
	F1
	G1
	H1
	A2
	B2
	C2
	D2
	E2
	F2
	G2
	H2
	A3
	B3
	C3
	D3
	E3
	F3
	G3
	H3
	A4
	B4
	C4
	D4
	E4
	F4
	G4
	H4
	A5
	B5
	C5
	D5
	E5
	F5
	G5
	H5
	A6
	B6
	C6
	D6
	E6
	F6
	G6
	H6
	A7
	B7
	C7
	D7
	E7
	F7
	G7
	H7
	A8
	B8
	C8
	D8
	E8
	F8
	G8
	H8
	SquareNone Square = 64
)

// MakeSquare builds a square from 0-indexed file and rank.
func MakeSquare(file, rank int) Square {
	return Square(rank<<3 | file)
}

func (sq Square) File() int { return int(sq) & 7 }
func (sq Square) Rank() int { return int(sq) >> 3 }

// Mirror flips the square vertically.
func (sq Square) Mirror() Square { return sq ^ 56 }

func (sq Square) String() string {
	if sq >= SquareNone {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// ParseSquare parses coordinate notation like "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return SquareNone, fmt.Errorf("bad square %q", s)
	}
	return MakeSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// Color of a piece or player.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Flip() Color { return c ^ 1 }

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceType without color.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	PieceTypeNone
)

// Piece packs type and color: type + 6*color.
type Piece uint8

const PieceNone Piece = 12

func MakePiece(pt PieceType, c Color) Piece {
	return Piece(pt) + 6*Piece(c)
}

func (p Piece) Type() PieceType {
	if p >= PieceNone {
		return PieceTypeNone
	}
	return PieceType(p % 6)
}

func (p Piece) Color() Color { return Color(p / 6) }

var pieceChars = "PNBRQKpnbrqk"

func (p Piece) String() string {
	if p >= PieceNone {
		return "."
	}
	return string(pieceChars[p])
}

func pieceFromChar(c byte) Piece {
	for i := 0; i < len(pieceChars); i++ {
		if pieceChars[i] == c {
			return Piece(i)
		}
	}
	return PieceNone
}

// Castle encodes castling rights as a 4-bit mask.
type Castle uint8

const (
	CastleWhiteKing Castle = 1 << iota
	CastleWhiteQueen
	CastleBlackKing
	CastleBlackQueen
	CastleNone Castle = 0
	CastleAll         = CastleWhiteKing | CastleWhiteQueen | CastleBlackKing | CastleBlackQueen
)

func (c Castle) String() string {
	if c == CastleNone {
		return "-"
	}
	var s []byte
	if c&CastleWhiteKing != 0 {
		s = append(s, 'K')
	}
	if c&CastleWhiteQueen != 0 {
		s = append(s, 'Q')
	}
	if c&CastleBlackKing != 0 {
		s = append(s, 'k')
	}
	if c&CastleBlackQueen != 0 {
		s = append(s, 'q')
	}
	return string(s)
}

// castleRightsMask[sq] holds the rights cleared when a piece moves from or to sq.
var castleRightsMask [64]Castle

func init() {
	for sq := A1; sq <= H8; sq++ {
		castleRightsMask[sq] = CastleNone
	}
	castleRightsMask[A1] = CastleWhiteQueen
	castleRightsMask[H1] = CastleWhiteKing
	castleRightsMask[E1] = CastleWhiteKing | CastleWhiteQueen
	castleRightsMask[A8] = CastleBlackQueen
	castleRightsMask[H8] = CastleBlackKing
	castleRightsMask[E8] = CastleBlackKing | CastleBlackQueen
}
