package wavfile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

func ReadBinary[T any](filename string) ([]T, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	var zero T
	data := make([]T, int(info.Size())/binary.Size(zero))
	if err := binary.Read(file, binary.LittleEndian, &data); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func WriteBinary[T any](filename string, data []T) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := binary.Write(file, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return file.Close()
}

func ReadText[T any](filename string) ([]T, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data []T
	r := bufio.NewReader(file)
	for {
		var element T
		if _, err := fmt.Fscan(r, &element); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		data = append(data, element)
	}
	return data, nil
}

func WriteText[T any](filename string, data []T) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, element := range data {
		if _, err := fmt.Fprintln(w, element); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return file.Close()
}
