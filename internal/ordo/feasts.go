package ordo

import (
	"sort"
	"time"
)

// Feast is a fixed-table override for one date. Obligatory is nil when the
// entry does not decide the obligation itself; the day then follows the
// Sunday rule.
type Feast struct {
	Date       string `json:"date"`
	Name       string `json:"name"`
	Color      Color  `json:"color"`
	Rank       Rank   `json:"rank"`
	Obligatory *bool  `json:"isObligatory,omitempty"`
	Note       string `json:"note,omitempty"`
}

// TableYear is the one liturgical year the fixed table covers.
const TableYear = 2026

const noteTriduum = "Paschal Triduum"

func obligatory(v bool) *bool { return &v }

// feastTable is built once at init and never modified.
var feastTable = indexFeasts([]Feast{
	// Christmas season tail.
	{Date: "2026-01-01", Name: "Mary, the Holy Mother of God", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(true)},
	{Date: "2026-01-04", Name: "The Epiphany of the Lord", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(true)},
	{Date: "2026-01-11", Name: "The Baptism of the Lord", Color: ColorWhite, Rank: RankFeast, Obligatory: obligatory(true)},

	// Ordinary Time before Lent.
	{Date: "2026-02-02", Name: "The Presentation of the Lord", Color: ColorWhite, Rank: RankFeast},

	// Lent and Holy Week.
	{Date: "2026-02-18", Name: "Ash Wednesday", Color: ColorViolet, Rank: RankFeast, Obligatory: obligatory(false)},
	{Date: "2026-03-15", Name: "Fourth Sunday of Lent (Laetare)", Color: ColorRose, Rank: RankSunday, Obligatory: obligatory(true)},
	{Date: "2026-03-19", Name: "Saint Joseph, Spouse of the Blessed Virgin Mary", Color: ColorWhite, Rank: RankSolemnity},
	{Date: "2026-03-25", Name: "The Annunciation of the Lord", Color: ColorWhite, Rank: RankSolemnity},
	{Date: "2026-03-29", Name: "Palm Sunday of the Passion of the Lord", Color: ColorRed, Rank: RankSunday, Obligatory: obligatory(true)},
	{Date: "2026-04-02", Name: "Thursday of the Lord's Supper", Color: ColorWhite, Rank: RankSolemnity, Note: noteTriduum},
	{Date: "2026-04-03", Name: "Friday of the Passion of the Lord (Good Friday)", Color: ColorRed, Rank: RankSolemnity, Note: noteTriduum},
	{Date: "2026-04-04", Name: "Holy Saturday and the Easter Vigil", Color: ColorWhite, Rank: RankSolemnity, Note: noteTriduum},

	// Easter season.
	{Date: "2026-04-05", Name: "Easter Sunday of the Resurrection of the Lord", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(true)},
	{Date: "2026-04-06", Name: "Monday within the Octave of Easter", Color: ColorWhite, Rank: RankSolemnity},
	{Date: "2026-04-07", Name: "Tuesday within the Octave of Easter", Color: ColorWhite, Rank: RankSolemnity},
	{Date: "2026-04-08", Name: "Wednesday within the Octave of Easter", Color: ColorWhite, Rank: RankSolemnity},
	{Date: "2026-04-09", Name: "Thursday within the Octave of Easter", Color: ColorWhite, Rank: RankSolemnity},
	{Date: "2026-04-10", Name: "Friday within the Octave of Easter", Color: ColorWhite, Rank: RankSolemnity},
	{Date: "2026-04-11", Name: "Saturday within the Octave of Easter", Color: ColorWhite, Rank: RankSolemnity},
	{Date: "2026-04-12", Name: "Second Sunday of Easter (Divine Mercy)", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(true)},
	{Date: "2026-05-01", Name: "Saint Joseph the Worker", Color: ColorWhite, Rank: RankOptional},
	{Date: "2026-05-14", Name: "The Ascension of the Lord", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(true)},
	{Date: "2026-05-24", Name: "Pentecost Sunday", Color: ColorRed, Rank: RankSolemnity, Obligatory: obligatory(true)},

	// Ordinary Time after Pentecost.
	{Date: "2026-05-31", Name: "The Most Holy Trinity", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(true)},
	{Date: "2026-06-07", Name: "The Most Holy Body and Blood of Christ", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(true)},
	{Date: "2026-06-12", Name: "The Most Sacred Heart of Jesus", Color: ColorWhite, Rank: RankSolemnity},
	{Date: "2026-06-13", Name: "The Immaculate Heart of the Blessed Virgin Mary", Color: ColorWhite, Rank: RankOptional},
	{Date: "2026-06-24", Name: "The Nativity of Saint John the Baptist", Color: ColorWhite, Rank: RankSolemnity},
	{Date: "2026-06-29", Name: "Saints Peter and Paul, Apostles", Color: ColorRed, Rank: RankSolemnity},
	{Date: "2026-07-22", Name: "Saint Mary Magdalene", Color: ColorWhite, Rank: RankFeast},
	{Date: "2026-07-25", Name: "Saint James, Apostle", Color: ColorRed, Rank: RankFeast},
	{Date: "2026-08-06", Name: "The Transfiguration of the Lord", Color: ColorWhite, Rank: RankFeast},
	{Date: "2026-08-10", Name: "Saint Lawrence, Deacon and Martyr", Color: ColorRed, Rank: RankFeast},
	// Falls on a Saturday in 2026; the obligation is lifted.
	{Date: "2026-08-15", Name: "The Assumption of the Blessed Virgin Mary", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(false)},
	{Date: "2026-08-22", Name: "The Queenship of the Blessed Virgin Mary", Color: ColorWhite, Rank: RankOptional},
	{Date: "2026-09-08", Name: "The Nativity of the Blessed Virgin Mary", Color: ColorWhite, Rank: RankFeast},
	{Date: "2026-09-14", Name: "The Exaltation of the Holy Cross", Color: ColorRed, Rank: RankFeast},
	{Date: "2026-09-29", Name: "Saints Michael, Gabriel and Raphael, Archangels", Color: ColorWhite, Rank: RankFeast},
	{Date: "2026-11-01", Name: "All Saints", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(true)},
	{Date: "2026-11-02", Name: "The Commemoration of All the Faithful Departed", Color: ColorViolet, Rank: RankFeast},
	{Date: "2026-11-09", Name: "The Dedication of the Lateran Basilica", Color: ColorWhite, Rank: RankFeast},
	{Date: "2026-11-22", Name: "Our Lord Jesus Christ, King of the Universe", Color: ColorGold, Rank: RankSolemnity, Obligatory: obligatory(true)},

	// Advent and the Christmas season head.
	{Date: "2026-12-08", Name: "The Immaculate Conception of the Blessed Virgin Mary", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(true)},
	{Date: "2026-12-12", Name: "Our Lady of Guadalupe", Color: ColorWhite, Rank: RankFeast},
	{Date: "2026-12-13", Name: "Third Sunday of Advent (Gaudete)", Color: ColorRose, Rank: RankSunday, Obligatory: obligatory(true)},
	{Date: "2026-12-25", Name: "The Nativity of the Lord (Christmas)", Color: ColorWhite, Rank: RankSolemnity, Obligatory: obligatory(true)},
	{Date: "2026-12-26", Name: "Saint Stephen, the First Martyr", Color: ColorRed, Rank: RankFeast},
	{Date: "2026-12-27", Name: "The Holy Family of Jesus, Mary and Joseph", Color: ColorWhite, Rank: RankFeast, Obligatory: obligatory(true)},
	{Date: "2026-12-28", Name: "The Holy Innocents, Martyrs", Color: ColorRed, Rank: RankFeast},
})

func indexFeasts(feasts []Feast) map[string]Feast {
	m := make(map[string]Feast, len(feasts))
	for _, f := range feasts {
		if _, err := time.Parse(DateLayout, f.Date); err != nil {
			panic("ordo: bad feast date " + f.Date)
		}
		if _, dup := m[f.Date]; dup {
			panic("ordo: duplicate feast date " + f.Date)
		}
		m[f.Date] = f
	}
	return m
}

// LookupFeast returns the fixed-table entry for date, if any.
func LookupFeast(date time.Time) (Feast, bool) {
	f, ok := feastTable[date.Format(DateLayout)]
	return f, ok
}

// FixedFeasts returns a copy of the fixed table sorted by date.
func FixedFeasts() []Feast {
	out := make([]Feast, 0, len(feastTable))
	for _, f := range feastTable {
		if f.Obligatory != nil {
			f.Obligatory = obligatory(*f.Obligatory)
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
