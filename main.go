////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package main

import "github.com/abrhamtibebu/event-horizon-dashboards-sub000/cmd"

func main() {
	cmd.Execute()
}
