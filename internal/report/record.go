// Package report turns filtered pairs into consultation records and writes
// them as spreadsheets.
package report

import (
	"github.com/altafino/consultation-report/internal/pairing"
)

// Columns is the fixed header row of every report.
var Columns = []string{
	"학번",
	"이름",
	"상담유형",
	"상담일",
	"시작시간",
	"종료시간",
	"장소",
	"제목",
	"상담요청 내용",
	"교수 답변",
	"공개여부",
}

// Record is one report row. Fields that could not be extracted are empty.
type Record struct {
	Identifier       string
	Name             string
	ConsultationType string
	Date             string
	StartTime        string
	EndTime          string
	Location         string
	Subject          string
	RequestText      string
	ResponseText     string
	Visibility       string
}

// Fixed holds the values copied into every record.
type Fixed struct {
	ConsultationType string
	Location         string
	Visibility       string
}

// DefaultFixed returns the standard office-hour values.
func DefaultFixed() Fixed {
	return Fixed{ConsultationType: "01", Location: "연구실", Visibility: "N"}
}

// Materialize builds one record per pair, in pair order.
func Materialize(pairs []*pairing.EmailPair, fixed Fixed) []Record {
	records := make([]Record, 0, len(pairs))
	for _, p := range pairs {
		records = append(records, Record{
			Identifier:       p.Identifier(),
			Name:             p.Name(),
			ConsultationType: fixed.ConsultationType,
			Date:             p.ConsultationDate(),
			StartTime:        p.StartTime(),
			EndTime:          p.EndTime(),
			Location:         fixed.Location,
			Subject:          p.Subject(),
			RequestText:      p.RequestText(),
			ResponseText:     p.ResponseText(),
			Visibility:       fixed.Visibility,
		})
	}
	return records
}

// Row returns the record's values in Columns order.
func (r Record) Row() []string {
	return []string{
		r.Identifier,
		r.Name,
		r.ConsultationType,
		r.Date,
		r.StartTime,
		r.EndTime,
		r.Location,
		r.Subject,
		r.RequestText,
		r.ResponseText,
		r.Visibility,
	}
}
