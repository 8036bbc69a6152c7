package utils

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-restruct/restruct"
	"golang.org/x/text/encoding/unicode"
)

type AskedFile struct {
	Fname   string
	Content []byte
	Id      int
}

// Unmarshal decodes the fixed little endian layout of data into the fields of v.
func Unmarshal(data []byte, v any) error {
	size, err := restruct.SizeOf(v)
	if err != nil {
		return err
	}
	if len(data) < size {
		return fmt.Errorf("need %d bytes to unmarshal %T have %d", size, v, len(data))
	}
	return restruct.Unpack(data[:size], binary.LittleEndian, v)
}

func Hexify(barray []byte) string {
	return hex.EncodeToString(barray)
}

func DecodeUTF16(b []byte) string {
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	utf8, err := decoder.Bytes(b)
	if err != nil {
		return ""
	}
	return string(utf8)
}

func Filter[T any](vals []T, pred func(T) bool) []T {
	var filtered []T
	for _, val := range vals {
		if pred(val) {
			filtered = append(filtered, val)
		}
	}
	return filtered
}

func FilterClone[T any](vals []T, pred func(T) bool) []T {
	filtered := make([]T, 0, len(vals))
	for _, val := range vals {
		if pred(val) {
			filtered = append(filtered, val)
		}
	}
	return filtered
}

func GetMD5(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

func GetSHA1(data []byte) string {
	return fmt.Sprintf("%x", sha1.Sum(data))
}

// WriteFile replaces the content of fullpath.
func WriteFile(fullpath string, data []byte) error {
	return writeFile(fullpath, data, os.O_TRUNC)
}

// AppendFile adds data at the end of fullpath, creating it if missing.
func AppendFile(fullpath string, data []byte) error {
	return writeFile(fullpath, data, os.O_APPEND)
}

func writeFile(fullpath string, data []byte, mode int) error {
	file, err := os.OpenFile(fullpath, mode|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.Write(data)
	return err
}

// GetEntries splits a comma separated argument.
func GetEntries(arg string) []string {
	var entries []string
	for _, entry := range strings.Split(arg, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func GetEntriesInt(arg string) []int {
	var entries []int
	for _, entry := range GetEntries(arg) {
		val, err := strconv.Atoi(entry)
		if err != nil {
			continue
		}
		entries = append(entries, val)
	}
	return entries
}
