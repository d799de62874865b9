package main

import (
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/uksrc/emerlin2caom/internal/fileinfo"
)

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe [paths...]",
		Short: "Show size, content type and checksum of files or measurement sets",
		Args:  args(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, paths []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetAutoFormatHeaders(false)
			table.SetBorder(false)
			table.SetHeader([]string{"Name", "Size", "Type", "MD5", "Last modified"})
			for _, path := range paths {
				info, err := fileinfo.Describe(path)
				if err != nil {
					return err
				}
				table.Append([]string{
					info.Name,
					strconv.FormatInt(info.Size, 10),
					info.FileType,
					info.MD5Sum,
					fileinfo.FormatIVOA(info.LastMod),
				})
			}
			table.Render()
			return nil
		},
	}
}
