package scmd

import (
	"encoding/base64"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

// resultOf finds <op>Response/<op>Result in the response body
func resultOf(doc *etree.Document, op string) (*etree.Element, error) {
	el := doc.FindElement("//Body/" + op + "Response/" + op + "Result")
	if el == nil {
		return nil, errors.Errorf("%s: response has no %sResult", op, op)
	}

	return el, nil
}

func childText(el *etree.Element, name string) string {
	c := el.SelectElement(name)
	if c == nil {
		return ""
	}

	return strings.TrimSpace(c.Text())
}

func childBytes(el *etree.Element, name string) ([]byte, error) {
	text := childText(el, name)
	if text == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", name)
	}

	return data, nil
}

func decodeSignStatus(el *etree.Element) SignStatus {
	return SignStatus{
		Code:       childText(el, "Code"),
		Field:      childText(el, "Field"),
		FieldValue: childText(el, "FieldValue"),
		Message:    childText(el, "Message"),
		ProcessID:  childText(el, "ProcessId"),
	}
}

func decodeSignResponse(el *etree.Element) (*SignResponse, error) {
	res := &SignResponse{}

	if arr := el.SelectElement("ArrayOfHashStructure"); arr != nil {
		for _, h := range arr.SelectElements("HashStructure") {
			hash, err := childBytes(h, "Hash")
			if err != nil {
				return nil, err
			}

			res.ArrayOfHashStructure = append(res.ArrayOfHashStructure, HashStructure{
				Hash: hash,
				Name: childText(h, "Name"),
				ID:   childText(h, "id"),
			})
		}
	}

	signature, err := childBytes(el, "Signature")
	if err != nil {
		return nil, err
	}
	res.Signature = signature

	if status := el.SelectElement("Status"); status != nil {
		res.Status = decodeSignStatus(status)
	}

	return res, nil
}
