// Package bible holds the canon and the annual four-track reading plan.
package bible

import (
	"errors"
	"fmt"
	"strings"
)

// Testament of a book
type Testament string

const (
	OldTestament Testament = "OT"
	NewTestament Testament = "NT"
)

var (
	ErrUnknownBook    = errors.New("unknown book")
	ErrInvalidChapter = errors.New("chapter out of range")
)

// Book is one canonical book with its chapter count
type Book struct {
	Name      string    `json:"name"`
	Korean    string    `json:"korean"`
	Testament Testament `json:"testament"`
	Chapters  int       `json:"chapters"`
}

var canon = []Book{
	{"Genesis", "창세기", OldTestament, 50},
	{"Exodus", "출애굽기", OldTestament, 40},
	{"Leviticus", "레위기", OldTestament, 27},
	{"Numbers", "민수기", OldTestament, 36},
	{"Deuteronomy", "신명기", OldTestament, 34},
	{"Joshua", "여호수아", OldTestament, 24},
	{"Judges", "사사기", OldTestament, 21},
	{"Ruth", "룻기", OldTestament, 4},
	{"1 Samuel", "사무엘상", OldTestament, 31},
	{"2 Samuel", "사무엘하", OldTestament, 24},
	{"1 Kings", "열왕기상", OldTestament, 22},
	{"2 Kings", "열왕기하", OldTestament, 25},
	{"1 Chronicles", "역대상", OldTestament, 29},
	{"2 Chronicles", "역대하", OldTestament, 36},
	{"Ezra", "에스라", OldTestament, 10},
	{"Nehemiah", "느헤미야", OldTestament, 13},
	{"Esther", "에스더", OldTestament, 10},
	{"Job", "욥기", OldTestament, 42},
	{"Psalms", "시편", OldTestament, 150},
	{"Proverbs", "잠언", OldTestament, 31},
	{"Ecclesiastes", "전도서", OldTestament, 12},
	{"Song of Songs", "아가", OldTestament, 8},
	{"Isaiah", "이사야", OldTestament, 66},
	{"Jeremiah", "예레미야", OldTestament, 52},
	{"Lamentations", "예레미야애가", OldTestament, 5},
	{"Ezekiel", "에스겔", OldTestament, 48},
	{"Daniel", "다니엘", OldTestament, 12},
	{"Hosea", "호세아", OldTestament, 14},
	{"Joel", "요엘", OldTestament, 3},
	{"Amos", "아모스", OldTestament, 9},
	{"Obadiah", "오바댜", OldTestament, 1},
	{"Jonah", "요나", OldTestament, 4},
	{"Micah", "미가", OldTestament, 7},
	{"Nahum", "나훔", OldTestament, 3},
	{"Habakkuk", "하박국", OldTestament, 3},
	{"Zephaniah", "스바냐", OldTestament, 3},
	{"Haggai", "학개", OldTestament, 2},
	{"Zechariah", "스가랴", OldTestament, 14},
	{"Malachi", "말라기", OldTestament, 4},
	{"Matthew", "마태복음", NewTestament, 28},
	{"Mark", "마가복음", NewTestament, 16},
	{"Luke", "누가복음", NewTestament, 24},
	{"John", "요한복음", NewTestament, 21},
	{"Acts", "사도행전", NewTestament, 28},
	{"Romans", "로마서", NewTestament, 16},
	{"1 Corinthians", "고린도전서", NewTestament, 16},
	{"2 Corinthians", "고린도후서", NewTestament, 13},
	{"Galatians", "갈라디아서", NewTestament, 6},
	{"Ephesians", "에베소서", NewTestament, 6},
	{"Philippians", "빌립보서", NewTestament, 4},
	{"Colossians", "골로새서", NewTestament, 4},
	{"1 Thessalonians", "데살로니가전서", NewTestament, 5},
	{"2 Thessalonians", "데살로니가후서", NewTestament, 3},
	{"1 Timothy", "디모데전서", NewTestament, 6},
	{"2 Timothy", "디모데후서", NewTestament, 4},
	{"Titus", "디도서", NewTestament, 3},
	{"Philemon", "빌레몬서", NewTestament, 1},
	{"Hebrews", "히브리서", NewTestament, 13},
	{"James", "야고보서", NewTestament, 5},
	{"1 Peter", "베드로전서", NewTestament, 5},
	{"2 Peter", "베드로후서", NewTestament, 3},
	{"1 John", "요한일서", NewTestament, 5},
	{"2 John", "요한이서", NewTestament, 1},
	{"3 John", "요한삼서", NewTestament, 1},
	{"Jude", "유다서", NewTestament, 1},
	{"Revelation", "요한계시록", NewTestament, 22},
}

var bookIndex = func() map[string]int {
	idx := make(map[string]int, len(canon)*3)
	for i, b := range canon {
		idx[normalize(b.Name)] = i
		idx[normalize(b.Korean)] = i
	}
	// common short forms
	idx["psalm"] = idx["psalms"]
	idx["songofsolomon"] = idx["songofsongs"]
	return idx
}()

func normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

// Books returns the canon in order
func Books() []Book {
	out := make([]Book, len(canon))
	copy(out, canon)
	return out
}

// FindBook looks a book up by English or Korean name, ignoring case and spaces
func FindBook(name string) (Book, error) {
	i, ok := bookIndex[normalize(name)]
	if !ok {
		return Book{}, fmt.Errorf("%w: %q", ErrUnknownBook, name)
	}
	return canon[i], nil
}

// ValidateChapter checks that chapter exists in the named book
func ValidateChapter(name string, chapter int) (Book, error) {
	b, err := FindBook(name)
	if err != nil {
		return Book{}, err
	}
	if chapter < 1 || chapter > b.Chapters {
		return Book{}, fmt.Errorf("%w: %s has %d chapters", ErrInvalidChapter, b.Name, b.Chapters)
	}
	return b, nil
}

// TotalChapters is the number of chapters in the canon
func TotalChapters() int {
	return len(flatChapters)
}
