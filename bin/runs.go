package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
)

var (
	runs_command = app.Command(
		"runs", "Display the runs of the $MFT.")

	runs_command_file_arg = runs_command.Arg(
		"file", "The image file to inspect",
	).Required().File()

	runs_command_offset = runs_command.Flag(
		"offset", "Sector offset of the volume in the image.",
	).Short('o').Default("0").Int64()

	runs_command_clusters = runs_command.Flag(
		"clusters", "Also print the expanded cluster list.",
	).Bool()
)

func doRuns() {
	session, _ := openSession(*runs_command_file_arg, *runs_command_offset)
	defer session.Close()

	cluster_size := session.Geometry.ClusterSize()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"Run",
		"Relative Offset",
		"Start Cluster",
		"Length",
		"Image Offset",
	})
	table.SetCaption(true, fmt.Sprintf(
		"$MFT runs, %v entries", session.NumberOfEntries()))

	for idx, run := range session.MFTRuns {
		if run.IsSparse {
			table.Append([]string{
				fmt.Sprintf("%d", idx), "-", "sparse",
				fmt.Sprintf("%d", run.Length), "-",
			})
			continue
		}

		table.Append([]string{
			fmt.Sprintf("%d", idx),
			fmt.Sprintf("%d", run.RelativeOffset),
			fmt.Sprintf("%d", run.Start),
			fmt.Sprintf("%d", run.Length),
			fmt.Sprintf("%#x", session.VolumeSkip+run.Start*cluster_size),
		})
	}
	table.Render()

	if *runs_command_clusters {
		fmt.Println(session.MFTRunList.String())
	}
}

func init() {
	command_handlers = append(command_handlers, func(command string) bool {
		switch command {
		case "runs":
			doRuns()
		default:
			return false
		}
		return true
	})
}
