package jmap

import (
	gojmap "git.sr.ht/~rockorager/go-jmap"
	"git.sr.ht/~rockorager/go-jmap/mail/email"

	"github.com/teemow/inboxreader/internal/mail"
)

func buildEmailQuery(account gojmap.ID, q mail.Query) *email.Query {
	return &email.Query{
		Account:        account,
		Filter:         toFilter(q.Filter),
		Sort:           toSort(q.Sort),
		Position:       int64(q.Offset),
		Limit:          uint64(q.Limit),
		CalculateTotal: q.CalculateTotal,
	}
}

// toFilter translates the neutral filter tree into JMAP Email/query filters.
func toFilter(f mail.Filter) email.Filter {
	switch f := f.(type) {
	case mail.InFolder:
		return &email.FilterCondition{InMailbox: gojmap.ID(f.FolderID)}
	case mail.SubjectContains:
		return &email.FilterCondition{Subject: f.Text}
	case mail.BodyContains:
		return &email.FilterCondition{Body: f.Text}
	case mail.And:
		return &email.FilterOperator{Operator: gojmap.OperatorAND, Conditions: toFilters(f)}
	case mail.Or:
		return &email.FilterOperator{Operator: gojmap.OperatorOR, Conditions: toFilters(f)}
	case mail.Not:
		return &email.FilterOperator{Operator: gojmap.OperatorNOT, Conditions: []email.Filter{toFilter(f.Cond)}}
	default:
		return nil
	}
}

func toFilters(fs []mail.Filter) []email.Filter {
	out := make([]email.Filter, 0, len(fs))
	for _, f := range fs {
		out = append(out, toFilter(f))
	}
	return out
}

func toSort(keys []mail.SortKey) []*email.SortComparator {
	if len(keys) == 0 {
		return nil
	}
	out := make([]*email.SortComparator, 0, len(keys))
	for _, k := range keys {
		out = append(out, &email.SortComparator{Property: k.Property, IsAscending: !k.Descending})
	}
	return out
}

func toRawMessage(e *email.Email) mail.RawMessage {
	m := mail.RawMessage{
		ID:      string(e.ID),
		Subject: e.Subject,
	}
	if e.ReceivedAt != nil {
		m.ReceivedAt = e.ReceivedAt.UTC()
	}
	for _, a := range e.From {
		if a == nil {
			continue
		}
		m.From = append(m.From, mail.Address{Name: a.Name, Email: a.Email})
	}
	for id, in := range e.MailboxIDs {
		if in {
			m.Mailboxes = append(m.Mailboxes, string(id))
		}
	}
	m.TextBody = toBodyParts(e.TextBody)
	m.HTMLBody = toBodyParts(e.HTMLBody)
	if len(e.BodyValues) > 0 {
		m.BodyValues = make(map[string]string, len(e.BodyValues))
		for id, v := range e.BodyValues {
			if v != nil {
				m.BodyValues[id] = v.Value
			}
		}
	}
	return m
}

func toBodyParts(parts []*email.BodyPart) []mail.BodyPart {
	if len(parts) == 0 {
		return nil
	}
	out := make([]mail.BodyPart, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		out = append(out, mail.BodyPart{PartID: p.PartID, Type: p.Type})
	}
	return out
}
