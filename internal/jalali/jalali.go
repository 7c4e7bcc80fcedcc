// Package jalali converts between the Jalali (solar Hijri) and Gregorian
// calendars using the break-point leap cycle table.
package jalali

import (
	"errors"
	"time"
)

var ErrOutOfRange = errors.New("jalali year outside supported range")

var breaks = [...]int{-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210, 1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178}

const (
	MinYear = -61
	// MaxYear is exclusive.
	MaxYear = 3178
)

type calendar struct {
	leap  int
	gy    int
	march int
}

// cal locates jy in the break table. leap is the year's position in its
// four-year cycle; 0 means leap year. march is the March day of Nowruz in gy.
func cal(jy int) (calendar, error) {
	gy := jy + 621
	leapJ := -14
	jp := breaks[0]
	if jy < jp || jy >= breaks[len(breaks)-1] {
		return calendar{}, ErrOutOfRange
	}

	var jump int
	for i := 1; i < len(breaks); i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + jump%33/4
		jp = jm
	}
	n := jy - jp
	leapJ += n/33*8 + (n%33+3)/4
	if jump%33 == 4 && jump-n == 4 {
		leapJ++
	}

	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march := 20 + leapJ - leapG

	if jump-n < 6 {
		n = n - jump + (jump+4)/33*33
	}
	leap := ((n+1)%33 - 1) % 4
	if leap == -1 {
		leap = 4
	}
	return calendar{leap: leap, gy: gy, march: march}, nil
}

// g2d returns the Julian day number of a Gregorian date.
func g2d(gy, gm, gd int) int {
	d := (gy+(gm-8)/6+100100)*1461/4 + (153*((gm+9)%12)+2)/5 + gd - 34840408
	return d - (gy+100100+(gm-8)/6)/100*3/4 + 752
}

func d2g(jdn int) (int, int, int) {
	j := 4*jdn + 139361631
	j = j + (4*jdn+183187720)/146097*3/4*4 - 3908
	i := j%1461/4*5 + 308
	gd := i%153/5 + 1
	gm := i/153%12 + 1
	gy := j/1461 - 100100 + (8-gm)/6
	return gy, gm, gd
}

func j2d(jy, jm, jd int) (int, error) {
	c, err := cal(jy)
	if err != nil {
		return 0, err
	}
	return g2d(c.gy, 3, c.march) + (jm-1)*31 - jm/7*(jm-7) + jd - 1, nil
}

func d2j(jdn int) (int, int, int, error) {
	gy, _, _ := d2g(jdn)
	jy := gy - 621
	if jy == MaxYear {
		// Dey to Esfand of the last supported year fall in the Gregorian
		// year whose Nowruz is already out of the table.
		c, err := cal(jy - 1)
		if err != nil {
			return 0, 0, 0, err
		}
		k := jdn - g2d(gy-1, 3, c.march)
		if k < 186 || k >= 186+179+boolInt(c.leap == 0) {
			return 0, 0, 0, ErrOutOfRange
		}
		k -= 186
		return jy - 1, 7 + k/30, k%30 + 1, nil
	}
	c, err := cal(jy)
	if err != nil {
		return 0, 0, 0, err
	}
	k := jdn - g2d(gy, 3, c.march)
	if k >= 0 {
		if k <= 185 {
			return jy, 1 + k/31, k%31 + 1, nil
		}
		k -= 186
	} else {
		jy--
		k += 179
		if c.leap == 1 {
			k++
		}
	}
	return jy, 7 + k/30, k%30 + 1, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func ToGregorian(jy, jm, jd int) (int, int, int, error) {
	jdn, err := j2d(jy, jm, jd)
	if err != nil {
		return 0, 0, 0, err
	}
	gy, gm, gd := d2g(jdn)
	return gy, gm, gd, nil
}

func FromGregorian(gy, gm, gd int) (int, int, int, error) {
	return d2j(g2d(gy, gm, gd))
}

func IsLeap(jy int) (bool, error) {
	c, err := cal(jy)
	if err != nil {
		return false, err
	}
	return c.leap == 0, nil
}

func MonthLength(jy, jm int) (int, error) {
	switch {
	case jm < 1 || jm > 12:
		return 0, errors.New("jalali month out of range")
	case jm <= 6:
		return 31, nil
	case jm <= 11:
		return 30, nil
	}
	leap, err := IsLeap(jy)
	if err != nil {
		return 0, err
	}
	if leap {
		return 30, nil
	}
	return 29, nil
}

func Valid(jy, jm, jd int) bool {
	n, err := MonthLength(jy, jm)
	return err == nil && jd >= 1 && jd <= n
}

// FromTime returns the Jalali date of t's calendar day in t's location.
func FromTime(t time.Time) (int, int, int, error) {
	y, m, d := t.Date()
	return FromGregorian(y, int(m), d)
}
