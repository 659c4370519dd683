// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"debug/elf"
	"errors"
	"fmt"
)

// ReadELFArch reads the target architecture from the ELF file with the given
// path.
//
// It returns [ErrNotELFFile] if the file is not an ELF file and
// [ErrMachineNotSupported] or [ErrOSABINotSupported] if the file is built
// for anything the guest can not run.
func ReadELFArch(path string) (Arch, error) {
	file, err := openELF(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	err = validateOSABI(file.FileHeader.OSABI)
	if err != nil {
		return "", err
	}

	return archFor(file.FileHeader.Machine)
}

// ValidateELF validates that ELF attributes match the requested architecture.
func ValidateELF(hdr elf.FileHeader, arch Arch) error {
	err := validateOSABI(hdr.OSABI)
	if err != nil {
		return err
	}

	archReq, err := archFor(hdr.Machine)
	if err != nil {
		return err
	}

	if archReq != arch {
		return fmt.Errorf(
			"%w: %s on %s",
			ErrMachineNotSupported,
			hdr.Machine,
			arch,
		)
	}

	return nil
}

func openELF(path string) (*elf.File, error) {
	file, err := elf.Open(path)
	if err != nil {
		var formatErr *elf.FormatError
		if errors.As(err, &formatErr) {
			return nil, fmt.Errorf("%w: %s", ErrNotELFFile, path)
		}

		return nil, fmt.Errorf("open: %w", err)
	}

	return file, nil
}

func validateOSABI(osabi elf.OSABI) error {
	switch osabi {
	case elf.ELFOSABI_NONE, elf.ELFOSABI_LINUX:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrOSABINotSupported, osabi)
	}
}

func archFor(machine elf.Machine) (Arch, error) {
	switch machine {
	case elf.EM_X86_64:
		return AMD64, nil
	case elf.EM_AARCH64:
		return ARM64, nil
	case elf.EM_RISCV:
		return RISCV64, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrMachineNotSupported, machine)
	}
}

// interpreterPresent reports whether the ELF file with the given path has a
// program interpreter set.
func interpreterPresent(path string) error {
	file, err := openELF(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, prog := range file.Progs {
		if prog.Type == elf.PT_INTERP {
			return nil
		}
	}

	return ErrNoInterpreter
}
